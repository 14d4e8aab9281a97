package state

import (
	"time"
)

// Kind says how an item was announced. An item may hold one record per kind
// over its lifetime (live first, video once the broadcast ends) but never two
// of the same kind.
type Kind string

const (
	KindVideo Kind = "video"
	KindLive  Kind = "live"
)

func (k Kind) Valid() bool { return k == KindVideo || k == KindLive }

// Phase is the per-item position in the notification state machine,
// derived from which records exist.
type Phase int

const (
	PhaseUnseen Phase = iota
	PhaseNotifiedLive
	PhaseNotifiedVideo
)

func (p Phase) String() string {
	switch p {
	case PhaseNotifiedLive:
		return "notified_live"
	case PhaseNotifiedVideo:
		return "notified_video"
	default:
		return "unseen"
	}
}

// Record is one delivered notification, keyed by (VideoID, Kind).
type Record struct {
	VideoID    string    `json:"video_id"`
	Kind       Kind      `json:"kind"`
	MessageID  int       `json:"message_id"`
	ChatID     int64     `json:"chat_id"`
	NotifiedAt time.Time `json:"notified_at"`
}

// Pin tracks the single message this bot keeps pinned.
// The zero value means "no pin of ours outstanding".
type Pin struct {
	MessageID int    `json:"message_id,omitempty"`
	ChatID    int64  `json:"chat_id,omitempty"`
	VideoID   string `json:"video_id,omitempty"`
	Kind      Kind   `json:"kind,omitempty"`
}

func (p Pin) IsZero() bool { return p.MessageID == 0 && p.VideoID == "" }

// Cursor separates historical items (never notified) from new ones.
// It is established on first run and only ever moves forward.
type Cursor struct {
	LastSeen time.Time `json:"last_seen,omitempty"`
}

// Document is the durable aggregate: notification ledger, pin ownership and
// baseline cursor. It is owned by the engine; stores only (de)serialize it.
type Document struct {
	Version       int      `json:"version"`
	Notifications []Record `json:"notifications"`
	Pin           Pin      `json:"pin,omitempty"`
	Cursor        Cursor   `json:"cursor"`
}

const documentVersion = 1

// NewDocument returns an empty document in canonical shape.
func NewDocument() *Document {
	return &Document{
		Version:       documentVersion,
		Notifications: []Record{},
	}
}

// Normalize repairs structural damage in place: wrong version, nil slices,
// records without an id or with an unknown kind, duplicate (id, kind) pairs
// (first wins), and a pin that lost its message id.
func (d *Document) Normalize() {
	d.Version = documentVersion
	if d.Notifications == nil {
		d.Notifications = []Record{}
	}

	seen := make(map[string]struct{}, len(d.Notifications))
	kept := d.Notifications[:0]
	for _, r := range d.Notifications {
		if r.VideoID == "" || !r.Kind.Valid() {
			continue
		}
		key := r.VideoID + "/" + string(r.Kind)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r)
	}
	d.Notifications = kept

	if d.Pin.MessageID == 0 || !d.Pin.Kind.Valid() {
		d.Pin = Pin{}
	}
}

// Find returns the record for (id, kind), or nil.
func (d *Document) Find(id string, kind Kind) *Record {
	for i := range d.Notifications {
		r := &d.Notifications[i]
		if r.VideoID == id && r.Kind == kind {
			return r
		}
	}
	return nil
}

func (d *Document) Has(id string, kind Kind) bool { return d.Find(id, kind) != nil }

// PhaseOf derives the state-machine phase for an item id.
// A video record always wins: that id will never be notified again.
func (d *Document) PhaseOf(id string) Phase {
	switch {
	case d.Has(id, KindVideo):
		return PhaseNotifiedVideo
	case d.Has(id, KindLive):
		return PhaseNotifiedLive
	default:
		return PhaseUnseen
	}
}

// Upsert inserts the record, or overwrites the existing (id, kind) entry.
func (d *Document) Upsert(rec Record) {
	if rec.VideoID == "" || !rec.Kind.Valid() {
		return
	}
	if cur := d.Find(rec.VideoID, rec.Kind); cur != nil {
		*cur = rec
		return
	}
	d.Notifications = append(d.Notifications, rec)
}

// AdvanceCursor moves the baseline forward. It never moves backward, so a
// transient poll that returns nothing recent cannot roll back dedup.
func (d *Document) AdvanceCursor(t time.Time) {
	if t.After(d.Cursor.LastSeen) {
		d.Cursor.LastSeen = t
	}
}

// Baselined reports whether a first-run baseline has been established.
func (d *Document) Baselined() bool {
	return !d.Cursor.LastSeen.IsZero() || len(d.Notifications) > 0
}
