package notify

import (
	"strings"

	"github.com/tonikukoc07/yt-video-alerts/internal/feed"
	"github.com/tonikukoc07/yt-video-alerts/internal/state"
)

// Default texts match what the bot has always sent.
const (
	DefaultVideoTemplate = "🎬 Nuevo en YouTube\n\n{{title}}\n\n{{link}}"
	DefaultLiveTemplate  = "🔴 EN DIRECTO\n\n{{title}}\n\n{{link}}"
)

// Renderer composes outbound messages from items. Templates know two
// placeholders, {{title}} and {{link}}; anything fancier belongs in config,
// not here.
type Renderer struct {
	videoTemplate   string
	liveTemplate    string
	attachThumbnail bool
	disablePreview  bool
}

type RenderOptions struct {
	VideoTemplate   string
	LiveTemplate    string
	AttachThumbnail bool
	DisablePreview  bool
}

func NewRenderer(opt RenderOptions) *Renderer {
	r := &Renderer{
		videoTemplate:   strings.TrimSpace(opt.VideoTemplate),
		liveTemplate:    strings.TrimSpace(opt.LiveTemplate),
		attachThumbnail: opt.AttachThumbnail,
		disablePreview:  opt.DisablePreview,
	}
	if r.videoTemplate == "" {
		r.videoTemplate = DefaultVideoTemplate
	}
	if r.liveTemplate == "" {
		r.liveTemplate = DefaultLiveTemplate
	}
	return r
}

func (r *Renderer) Render(kind state.Kind, item feed.Item) Message {
	tmpl := r.videoTemplate
	if kind == state.KindLive {
		tmpl = r.liveTemplate
	}

	text := strings.ReplaceAll(tmpl, "{{title}}", item.Title)
	text = strings.ReplaceAll(text, "{{link}}", item.Link)

	msg := Message{Text: text, DisablePreview: r.disablePreview}
	if r.attachThumbnail {
		msg.Thumbnail = item.Thumbnail
	}
	return msg
}
