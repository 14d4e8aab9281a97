package live

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

const defaultProbeTimeout = 8 * time.Second

// Prober fetches a fresher live-status signal for one item.
//
// A probe never fails: network errors, timeouts and unparseable pages all
// degrade to BroadcastUnknown, which Classify treats as not live. The failure
// is only visible as a debug log.
type Prober interface {
	Probe(ctx context.Context, link string) Signal
}

// PageProber scrapes the public watch page. YouTube embeds schema.org
// VideoObject microdata there: <meta itemprop="isLiveBroadcast"> together
// with startDate/endDate are the authoritative start/end markers, and
// interactionCount carries the view metric.
type PageProber struct {
	client  *http.Client
	timeout time.Duration
	log     logx.Logger
}

func NewPageProber(timeout time.Duration, log logx.Logger) *PageProber {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &PageProber{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		log:     log,
	}
}

func (p *PageProber) Probe(ctx context.Context, link string) Signal {
	unknown := Signal{Broadcast: BroadcastUnknown, Viewers: -1}
	if strings.TrimSpace(link) == "" {
		return unknown
	}

	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pctx, http.MethodGet, link, nil)
	if err != nil {
		p.log.Debug("probe request build failed", logx.String("link", link), logx.Err(err))
		return unknown
	}
	req.Header.Set("User-Agent", "ytalerts/1.0")
	req.Header.Set("Accept-Language", "en")

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("probe fetch failed", logx.String("link", link), logx.Err(err))
		return unknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.log.Debug("probe got non-200", logx.String("link", link), logx.String("status", resp.Status))
		return unknown
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		p.log.Debug("probe parse failed", logx.String("link", link), logx.Err(err))
		return unknown
	}

	return SignalFromDocument(doc, time.Now())
}

// SignalFromDocument extracts the broadcast signal from a parsed watch page.
// Split out from Probe so the ranking can be tested against captured HTML.
func SignalFromDocument(doc *goquery.Document, now time.Time) Signal {
	sig := Signal{Broadcast: BroadcastUnknown, Viewers: -1}

	if raw, ok := metaContent(doc, "interactionCount"); ok {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			sig.Viewers = n
		}
	}

	raw, ok := metaContent(doc, "isLiveBroadcast")
	if !ok {
		// Microdata present but no live marker: a plain upload.
		// Without any microdata at all we stay unknown (consent walls,
		// region blocks and bot checks all serve marker-free pages).
		if doc.Find(`meta[itemprop]`).Length() > 0 {
			sig.Broadcast = BroadcastNone
		}
		return sig
	}
	if !strings.EqualFold(raw, "true") {
		sig.Broadcast = BroadcastNone
		return sig
	}

	if _, ended := metaContent(doc, "endDate"); ended {
		sig.Broadcast = BroadcastEnded
		return sig
	}

	if startRaw, ok := metaContent(doc, "startDate"); ok {
		if start, err := time.Parse(time.RFC3339, startRaw); err == nil && start.After(now) {
			sig.Broadcast = BroadcastUpcoming
			return sig
		}
	}

	sig.Broadcast = BroadcastLive
	return sig
}

func metaContent(doc *goquery.Document, itemprop string) (string, bool) {
	sel := doc.Find(`meta[itemprop="` + itemprop + `"]`)
	if sel.Length() == 0 {
		return "", false
	}
	v, ok := sel.First().Attr("content")
	return strings.TrimSpace(v), ok
}
