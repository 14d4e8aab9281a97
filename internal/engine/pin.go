package engine

import (
	"github.com/tonikukoc07/yt-video-alerts/internal/feed"
	"github.com/tonikukoc07/yt-video-alerts/internal/live"
	"github.com/tonikukoc07/yt-video-alerts/internal/state"
)

// SelectPinTarget picks the item the highlighted (pinned) message should
// reflect: an active broadcast beats everything, otherwise the most recent
// upload. Recomputed fresh each cycle from the observed window — the target
// can legitimately be an item that was notified many cycles ago, so it is
// not derived from the notification ledger.
func SelectPinTarget(items []feed.Item, statuses map[string]live.Status) (feed.Item, state.Kind, bool) {
	var (
		bestLive    feed.Item
		haveLive    bool
		bestOverall feed.Item
		haveOverall bool
	)
	for _, it := range items {
		if !haveOverall || it.PublishedAt.After(bestOverall.PublishedAt) {
			bestOverall = it
			haveOverall = true
		}
		if statuses[it.ID].LiveNow {
			if !haveLive || it.PublishedAt.After(bestLive.PublishedAt) {
				bestLive = it
				haveLive = true
			}
		}
	}

	if haveLive {
		return bestLive, state.KindLive, true
	}
	if haveOverall {
		return bestOverall, state.KindVideo, true
	}
	return feed.Item{}, "", false
}
