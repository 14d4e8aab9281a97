package feed

import (
	"context"
	"time"
)

// Item is one piece of channel content (upload or broadcast) as the uploads
// feed reports it. Everything except live status is immutable once published;
// live status is deliberately NOT here — it is resolved per cycle (see the
// live package) because it changes for the same id between cycles.
type Item struct {
	ID          string    // yt video id, the stable identity key
	Title       string
	Link        string
	PublishedAt time.Time // zero when the feed omitted it
	Thumbnail   string    // best thumbnail URL, "" when absent

	// Views is a best-effort hint from media:statistics (-1 when absent).
	// The watch-page probe supersedes it when it runs.
	Views int64
}

// Source lists recently known channel items. Order is not guaranteed;
// callers re-sort.
type Source interface {
	ListRecent(ctx context.Context, limit int) ([]Item, error)
}
