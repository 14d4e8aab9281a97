package state

import (
	"testing"
	"time"
)

var (
	tA = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tB = tA.Add(time.Hour)
)

func TestPhaseOf(t *testing.T) {
	t.Parallel()
	doc := NewDocument()
	if got := doc.PhaseOf("x"); got != PhaseUnseen {
		t.Fatalf("empty ledger: phase = %v", got)
	}

	doc.Upsert(Record{VideoID: "x", Kind: KindLive, MessageID: 1, NotifiedAt: tA})
	if got := doc.PhaseOf("x"); got != PhaseNotifiedLive {
		t.Fatalf("after live record: phase = %v", got)
	}

	doc.Upsert(Record{VideoID: "x", Kind: KindVideo, MessageID: 1, NotifiedAt: tB})
	if got := doc.PhaseOf("x"); got != PhaseNotifiedVideo {
		t.Fatalf("after video record: phase = %v", got)
	}
	// Both records coexist; video decides the phase.
	if !doc.Has("x", KindLive) {
		t.Fatal("live record should survive the conversion")
	}
}

func TestUpsertOverwritesSameKey(t *testing.T) {
	t.Parallel()
	doc := NewDocument()
	doc.Upsert(Record{VideoID: "x", Kind: KindVideo, MessageID: 1, NotifiedAt: tA})
	doc.Upsert(Record{VideoID: "x", Kind: KindVideo, MessageID: 2, NotifiedAt: tB})

	if len(doc.Notifications) != 1 {
		t.Fatalf("want 1 record, got %d", len(doc.Notifications))
	}
	if doc.Notifications[0].MessageID != 2 {
		t.Fatalf("overwrite lost: %+v", doc.Notifications[0])
	}
}

func TestUpsertRejectsInvalid(t *testing.T) {
	t.Parallel()
	doc := NewDocument()
	doc.Upsert(Record{VideoID: "", Kind: KindVideo})
	doc.Upsert(Record{VideoID: "x", Kind: Kind("story")})
	if len(doc.Notifications) != 0 {
		t.Fatalf("invalid records were kept: %+v", doc.Notifications)
	}
}

func TestAdvanceCursorIsMonotonic(t *testing.T) {
	t.Parallel()
	doc := NewDocument()
	doc.AdvanceCursor(tB)
	doc.AdvanceCursor(tA)
	if !doc.Cursor.LastSeen.Equal(tB) {
		t.Fatalf("cursor moved backward: %v", doc.Cursor.LastSeen)
	}
	doc.AdvanceCursor(time.Time{})
	if !doc.Cursor.LastSeen.Equal(tB) {
		t.Fatalf("zero time moved the cursor: %v", doc.Cursor.LastSeen)
	}
}

func TestBaselined(t *testing.T) {
	t.Parallel()
	doc := NewDocument()
	if doc.Baselined() {
		t.Fatal("fresh document must not count as baselined")
	}
	doc.AdvanceCursor(tA)
	if !doc.Baselined() {
		t.Fatal("cursor alone should establish the baseline")
	}

	// A migrated ledger without a cursor also counts.
	doc2 := NewDocument()
	doc2.Upsert(Record{VideoID: "x", Kind: KindVideo, NotifiedAt: tA})
	if !doc2.Baselined() {
		t.Fatal("existing records should establish the baseline")
	}
}

func TestNormalizeRepairsDamage(t *testing.T) {
	t.Parallel()
	doc := &Document{
		Version: 99,
		Notifications: []Record{
			{VideoID: "a", Kind: KindVideo, MessageID: 1},
			{VideoID: "", Kind: KindVideo, MessageID: 2},
			{VideoID: "a", Kind: KindVideo, MessageID: 3}, // duplicate key
			{VideoID: "b", Kind: Kind("bogus"), MessageID: 4},
			{VideoID: "b", Kind: KindLive, MessageID: 5},
		},
		Pin: Pin{VideoID: "a", Kind: KindVideo}, // lost its message id
	}
	doc.Normalize()

	if doc.Version != documentVersion {
		t.Fatalf("version = %d", doc.Version)
	}
	if len(doc.Notifications) != 2 {
		t.Fatalf("want 2 surviving records, got %+v", doc.Notifications)
	}
	if doc.Notifications[0].MessageID != 1 {
		t.Fatalf("duplicate resolution must keep the first record: %+v", doc.Notifications[0])
	}
	if !doc.Pin.IsZero() {
		t.Fatalf("pin without message id should be cleared: %+v", doc.Pin)
	}
}
