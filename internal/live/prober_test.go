package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

var probeNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func watchPage(metas string) string {
	return `<!DOCTYPE html><html><head><title>watch</title>` + metas + `</head><body></body></html>`
}

func parsePage(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestSignalFromDocument(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		metas       string
		want        BroadcastState
		wantViewers int64
	}{
		{
			name: "ongoing broadcast",
			metas: `<meta itemprop="isLiveBroadcast" content="True">` +
				`<meta itemprop="startDate" content="2024-05-01T10:00:00+00:00">` +
				`<meta itemprop="interactionCount" content="1528">`,
			want:        BroadcastLive,
			wantViewers: 1528,
		},
		{
			name: "finished broadcast",
			metas: `<meta itemprop="isLiveBroadcast" content="True">` +
				`<meta itemprop="startDate" content="2024-05-01T10:00:00+00:00">` +
				`<meta itemprop="endDate" content="2024-05-01T11:30:00+00:00">` +
				`<meta itemprop="interactionCount" content="9001">`,
			want:        BroadcastEnded,
			wantViewers: 9001,
		},
		{
			name: "scheduled broadcast",
			metas: `<meta itemprop="isLiveBroadcast" content="True">` +
				`<meta itemprop="startDate" content="2024-05-02T18:00:00+00:00">`,
			want:        BroadcastUpcoming,
			wantViewers: -1,
		},
		{
			name: "plain upload with microdata",
			metas: `<meta itemprop="videoId" content="abc">` +
				`<meta itemprop="interactionCount" content="42">`,
			want:        BroadcastNone,
			wantViewers: 42,
		},
		{
			name:  "live marker explicitly false",
			metas: `<meta itemprop="isLiveBroadcast" content="False">`,
			want:  BroadcastNone,

			wantViewers: -1,
		},
		{
			name:        "marker-free page stays unknown",
			metas:       `<meta name="description" content="consent wall">`,
			want:        BroadcastUnknown,
			wantViewers: -1,
		},
		{
			name: "unparseable start date still live",
			metas: `<meta itemprop="isLiveBroadcast" content="True">` +
				`<meta itemprop="startDate" content="soon">`,
			want:        BroadcastLive,
			wantViewers: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := parsePage(t, watchPage(tt.metas))
			sig := SignalFromDocument(doc, probeNow)
			if sig.Broadcast != tt.want {
				t.Fatalf("broadcast = %v, want %v", sig.Broadcast, tt.want)
			}
			if sig.Viewers != tt.wantViewers {
				t.Fatalf("viewers = %d, want %d", sig.Viewers, tt.wantViewers)
			}
		})
	}
}

func TestPageProberFetchesAndClassifies(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(watchPage(
			`<meta itemprop="isLiveBroadcast" content="True">` +
				`<meta itemprop="startDate" content="2024-05-01T10:00:00+00:00">`)))
	}))
	defer srv.Close()

	p := NewPageProber(2*time.Second, logx.Nop())
	sig := p.Probe(context.Background(), srv.URL)
	if sig.Broadcast != BroadcastLive {
		t.Fatalf("broadcast = %v, want live", sig.Broadcast)
	}
}

func TestPageProberDegradesToUnknown(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewPageProber(2*time.Second, logx.Nop())

	if sig := p.Probe(context.Background(), srv.URL); sig.Broadcast != BroadcastUnknown {
		t.Fatalf("non-200 should degrade to unknown, got %v", sig.Broadcast)
	}
	if sig := p.Probe(context.Background(), "http://127.0.0.1:1/unreachable"); sig.Broadcast != BroadcastUnknown {
		t.Fatalf("connection failure should degrade to unknown, got %v", sig.Broadcast)
	}
	if sig := p.Probe(context.Background(), ""); sig.Broadcast != BroadcastUnknown {
		t.Fatalf("empty link should degrade to unknown, got %v", sig.Broadcast)
	}
}
