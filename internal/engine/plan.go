package engine

import (
	"sort"
	"time"

	"github.com/tonikukoc07/yt-video-alerts/internal/feed"
	"github.com/tonikukoc07/yt-video-alerts/internal/live"
	"github.com/tonikukoc07/yt-video-alerts/internal/state"
)

// Op is what a decision tells the executor to do.
type Op int

const (
	// OpNotify posts a fresh notification of Decision.Kind.
	OpNotify Op = iota
	// OpConvert turns an existing live notification into the video
	// presentation without duplicating the post.
	OpConvert
)

func (o Op) String() string {
	if o == OpConvert {
		return "convert"
	}
	return "notify"
}

// Decision is one side effect the current cycle must attempt.
type Decision struct {
	Op   Op
	Item feed.Item
	Kind state.Kind

	// From is the live record being superseded (OpConvert only).
	From state.Record
}

// Plan derives the cycle's decisions from the prior document and the observed
// items. It is pure: no I/O, no mutation, deterministic for a given input.
//
// Items are processed oldest publish time first so notifications for several
// items that appeared between polls come out in chronological order.
//
// On a first run against an empty document it returns nothing: the feed is
// full of historical items and the only job is to establish the baseline
// cursor (the caller does that). Items at or before the baseline cursor are
// never retroactively notified; conversion of an already-announced live item
// is exempt from that gate because it is keyed on the record, not the feed
// window.
func Plan(doc *state.Document, items []feed.Item, statuses map[string]live.Status) []Decision {
	if doc == nil || len(items) == 0 {
		return nil
	}
	if !doc.Baselined() {
		return nil
	}

	ordered := make([]feed.Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PublishedAt.Before(ordered[j].PublishedAt)
	})

	var out []Decision
	for _, it := range ordered {
		liveNow := statuses[it.ID].LiveNow

		switch doc.PhaseOf(it.ID) {
		case state.PhaseUnseen:
			if !it.PublishedAt.After(doc.Cursor.LastSeen) {
				continue
			}
			kind := state.KindVideo
			if liveNow {
				kind = state.KindLive
			}
			out = append(out, Decision{Op: OpNotify, Item: it, Kind: kind})

		case state.PhaseNotifiedLive:
			if liveNow {
				continue // already announced
			}
			rec := doc.Find(it.ID, state.KindLive)
			if rec == nil {
				continue
			}
			out = append(out, Decision{Op: OpConvert, Item: it, Kind: state.KindVideo, From: *rec})

		case state.PhaseNotifiedVideo:
			// terminal: this id is never notified again
		}
	}
	return out
}

// NewestPublish returns the latest publish time in the window
// (zero when the window is empty or undated).
func NewestPublish(items []feed.Item) time.Time {
	var latest time.Time
	for _, it := range items {
		if it.PublishedAt.After(latest) {
			latest = it.PublishedAt
		}
	}
	return latest
}

// NextCursor returns how far the baseline cursor may move after a cycle's
// side effects: the newest publish time observed, capped strictly below the
// oldest item whose fresh notification still has no record. Without the cap
// a failed post would fall behind the baseline and never be retried — the
// retry contract is "record absent, next cycle posts again", which only
// works while the item stays ahead of the cursor. Conversions are keyed on
// the existing live record and need no cap.
func NextCursor(doc *state.Document, items []feed.Item, decisions []Decision) time.Time {
	var pending time.Time
	for _, d := range decisions {
		if d.Op != OpNotify {
			continue
		}
		if doc.PhaseOf(d.Item.ID) != state.PhaseUnseen {
			continue
		}
		if pending.IsZero() || d.Item.PublishedAt.Before(pending) {
			pending = d.Item.PublishedAt
		}
	}
	if pending.IsZero() {
		return NewestPublish(items)
	}

	var latest time.Time
	for _, it := range items {
		if it.PublishedAt.Before(pending) && it.PublishedAt.After(latest) {
			latest = it.PublishedAt
		}
	}
	return latest
}
