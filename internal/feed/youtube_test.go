package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

const uploadsFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015"
      xmlns:media="http://search.yahoo.com/mrss/"
      xmlns="http://www.w3.org/2005/Atom">
  <title>Canal de prueba</title>
  <entry>
    <id>yt:video:n3wV1de0Id</id>
    <yt:videoId>n3wV1de0Id</yt:videoId>
    <yt:channelId>UCtestchannel</yt:channelId>
    <title>Nuevo video</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=n3wV1de0Id"/>
    <published>2024-05-01T14:00:00+00:00</published>
    <media:group>
      <media:title>Nuevo video</media:title>
      <media:thumbnail url="https://i.ytimg.com/vi/n3wV1de0Id/hqdefault.jpg" width="480" height="360"/>
      <media:community>
        <media:statistics views="1234"/>
      </media:community>
    </media:group>
  </entry>
  <entry>
    <id>yt:video:0lderV1deo</id>
    <yt:videoId>0lderV1deo</yt:videoId>
    <title>Video anterior</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=0lderV1deo"/>
    <published>2024-04-28T09:30:00+00:00</published>
    <media:group>
      <media:title>Video anterior</media:title>
      <media:thumbnail url="https://i.ytimg.com/vi/0lderV1deo/hqdefault.jpg" width="480" height="360"/>
    </media:group>
  </entry>
  <entry>
    <id>tag:broken,2024:entry</id>
    <title>Entrada sin id</title>
  </entry>
</feed>`

func serveFeed(t *testing.T, status int, body string) *YouTubeSource {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "nope", status)
			return
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewYouTubeSource(srv.URL, 2*time.Second, logx.Nop())
}

func TestListRecentParsesUploadsFeed(t *testing.T) {
	t.Parallel()
	src := serveFeed(t, http.StatusOK, uploadsFeed)

	items, err := src.ListRecent(context.Background(), 15)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("want 2 items (broken entry skipped), got %d: %+v", len(items), items)
	}

	got := items[0]
	if got.ID != "n3wV1de0Id" {
		t.Fatalf("id = %q", got.ID)
	}
	if got.Title != "Nuevo video" {
		t.Fatalf("title = %q", got.Title)
	}
	if got.Link != "https://www.youtube.com/watch?v=n3wV1de0Id" {
		t.Fatalf("link = %q", got.Link)
	}
	wantPub := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	if !got.PublishedAt.Equal(wantPub) {
		t.Fatalf("published = %v, want %v", got.PublishedAt, wantPub)
	}
	if got.Thumbnail != "https://i.ytimg.com/vi/n3wV1de0Id/hqdefault.jpg" {
		t.Fatalf("thumbnail = %q", got.Thumbnail)
	}
	if got.Views != 1234 {
		t.Fatalf("views = %d", got.Views)
	}

	// Second entry has no statistics block.
	if items[1].Views != -1 {
		t.Fatalf("missing stats should yield -1, got %d", items[1].Views)
	}
}

func TestListRecentHonorsLimit(t *testing.T) {
	t.Parallel()
	src := serveFeed(t, http.StatusOK, uploadsFeed)

	items, err := src.ListRecent(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(items) != 1 || items[0].ID != "n3wV1de0Id" {
		t.Fatalf("limit not honored: %+v", items)
	}
}

func TestListRecentErrors(t *testing.T) {
	t.Parallel()
	t.Run("http error status", func(t *testing.T) {
		t.Parallel()
		src := serveFeed(t, http.StatusServiceUnavailable, "")
		if _, err := src.ListRecent(context.Background(), 15); err == nil {
			t.Fatal("expected error for 503 feed")
		}
	})
	t.Run("unparseable body", func(t *testing.T) {
		t.Parallel()
		src := serveFeed(t, http.StatusOK, "this is not xml")
		if _, err := src.ListRecent(context.Background(), 15); err == nil {
			t.Fatal("expected parse error")
		}
	})
	t.Run("unreachable host", func(t *testing.T) {
		t.Parallel()
		src := NewYouTubeSource("http://127.0.0.1:1/feed", time.Second, logx.Nop())
		if _, err := src.ListRecent(context.Background(), 15); err == nil {
			t.Fatal("expected connection error")
		}
	})
}
