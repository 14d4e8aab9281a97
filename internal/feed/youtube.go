package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

const defaultFetchTimeout = 15 * time.Second

// YouTubeSource reads a channel's uploads feed
// (https://www.youtube.com/feeds/videos.xml?channel_id=<id>).
//
// The feed is Atom with yt: and media: extensions; gofeed exposes those via
// Item.Extensions, which is where the video id, thumbnail and view-count hint
// come from.
type YouTubeSource struct {
	url    string
	client *http.Client
	log    logx.Logger
}

func NewYouTubeSource(feedURL string, timeout time.Duration, log logx.Logger) *YouTubeSource {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &YouTubeSource{
		url:    feedURL,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

func (s *YouTubeSource) ListRecent(ctx context.Context, limit int) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", "ytalerts/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		norm, ok := normalizeEntry(it)
		if !ok {
			s.log.Debug("feed entry without video id skipped", logx.String("title", it.Title))
			continue
		}
		items = append(items, norm)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func normalizeEntry(it *gofeed.Item) (Item, bool) {
	id := videoID(it)
	if id == "" {
		return Item{}, false
	}

	norm := Item{
		ID:    id,
		Title: it.Title,
		Link:  it.Link,
		Views: -1,
	}
	if norm.Link == "" {
		norm.Link = "https://www.youtube.com/watch?v=" + id
	}
	if it.PublishedParsed != nil {
		norm.PublishedAt = it.PublishedParsed.UTC()
	}

	if group := firstExt(it, "media", "group"); group != nil {
		if th := firstChild(group, "thumbnail"); th != nil {
			norm.Thumbnail = th.Attrs["url"]
		}
		if community := firstChild(group, "community"); community != nil {
			if stats := firstChild(community, "statistics"); stats != nil {
				if v, err := strconv.ParseInt(stats.Attrs["views"], 10, 64); err == nil {
					norm.Views = v
				}
			}
		}
	}
	if norm.Thumbnail == "" && it.Image != nil {
		norm.Thumbnail = it.Image.URL
	}

	return norm, true
}

// videoID digs the stable id out of an uploads-feed entry: the yt:videoId
// extension, the "yt:video:<id>" GUID form, or the v= query parameter.
func videoID(it *gofeed.Item) string {
	if e := firstExt(it, "yt", "videoId"); e != nil && e.Value != "" {
		return e.Value
	}
	if strings.HasPrefix(it.GUID, "yt:video:") {
		return strings.TrimPrefix(it.GUID, "yt:video:")
	}
	if it.Link != "" {
		if u, err := url.Parse(it.Link); err == nil {
			if v := u.Query().Get("v"); v != "" {
				return v
			}
		}
	}
	return ""
}

func firstExt(it *gofeed.Item, ns, name string) *ext.Extension {
	if it.Extensions == nil {
		return nil
	}
	es := it.Extensions[ns][name]
	if len(es) == 0 {
		return nil
	}
	return &es[0]
}

func firstChild(e *ext.Extension, name string) *ext.Extension {
	if e == nil || e.Children == nil {
		return nil
	}
	cs := e.Children[name]
	if len(cs) == 0 {
		return nil
	}
	return &cs[0]
}
