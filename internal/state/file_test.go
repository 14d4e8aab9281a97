package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

func openTestStore(t *testing.T, path string) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	st := openTestStore(t, path)

	doc := NewDocument()
	doc.Upsert(Record{VideoID: "abc", Kind: KindLive, MessageID: 44, ChatID: -100, NotifiedAt: tA})
	doc.Pin = Pin{MessageID: 44, ChatID: -100, VideoID: "abc", Kind: KindLive}
	doc.AdvanceCursor(tB)

	if err := st.Save(context.Background(), doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Has("abc", KindLive) {
		t.Fatalf("record lost: %+v", got)
	}
	if got.Pin != doc.Pin {
		t.Fatalf("pin lost: %+v", got.Pin)
	}
	if !got.Cursor.LastSeen.Equal(tB) {
		t.Fatalf("cursor lost: %v", got.Cursor.LastSeen)
	}
}

func TestFileStoreMissingFileYieldsEmptyDocument(t *testing.T) {
	t.Parallel()
	st := openTestStore(t, filepath.Join(t.TempDir(), "nope.json"))

	doc, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Baselined() || len(doc.Notifications) != 0 {
		t.Fatalf("expected pristine document, got %+v", doc)
	}
}

func TestFileStoreCorruptFileRecoversEmpty(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"truncated json", `{"version": 1, "notifica`},
		{"wrong type", `[1, 2, 3]`},
		{"empty file", ``},
		{"unrelated object", `{"hello": "world"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "state.json")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("seed: %v", err)
			}
			st := openTestStore(t, path)

			doc, err := st.Load(context.Background())
			if err != nil {
				t.Fatalf("Load must recover, got %v", err)
			}
			if doc.Baselined() {
				t.Fatalf("recovered document must be empty: %+v", doc)
			}
		})
	}
}

func TestFileStoreMigratesLegacyShape(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"last_sent": "oldvid"}`), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	st := openTestStore(t, path)

	doc, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec := doc.Find("oldvid", KindVideo)
	if rec == nil {
		t.Fatalf("legacy id not migrated: %+v", doc)
	}
	if rec.MessageID != 0 {
		t.Fatalf("legacy record must carry no message reference: %+v", rec)
	}
	// Migration must baseline immediately or the whole feed would be
	// announced on the next cycle.
	if doc.Cursor.LastSeen.IsZero() {
		t.Fatal("migration did not set the baseline cursor")
	}
	if time.Since(doc.Cursor.LastSeen) > time.Minute {
		t.Fatalf("migration cursor should be now-ish: %v", doc.Cursor.LastSeen)
	}
}

func TestFileStoreSaveNormalizes(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	st := openTestStore(t, path)

	doc := NewDocument()
	doc.AdvanceCursor(tA)
	doc.Notifications = append(doc.Notifications,
		Record{VideoID: "", Kind: KindVideo, MessageID: 9})
	if err := st.Save(context.Background(), doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var onDisk Document
	if err := json.Unmarshal(b, &onDisk); err != nil {
		t.Fatalf("state file not valid JSON: %v", err)
	}
	if len(onDisk.Notifications) != 0 {
		t.Fatalf("invalid record written to disk: %+v", onDisk.Notifications)
	}
	if onDisk.Version != documentVersion {
		t.Fatalf("version on disk = %d", onDisk.Version)
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st := openTestStore(t, filepath.Join(dir, "state.json"))

	doc := NewDocument()
	doc.AdvanceCursor(tA)
	for i := 0; i < 3; i++ {
		if err := st.Save(context.Background(), doc); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("directory should contain only the state file, got %v", names)
	}
}
