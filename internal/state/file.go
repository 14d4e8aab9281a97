package state

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

// fileStore keeps the document as one indented JSON file so operators can
// diff it. Writes go to a temp file in the same directory followed by a
// rename; a killed process can therefore never leave a half-written document.
type fileStore struct {
	path string
	log  logx.Logger
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = "./ytalerts.state.json"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{path: path, log: log}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Load(ctx context.Context) (*Document, error) {
	_ = ctx
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("state file unreadable; starting from empty document",
				logx.String("path", s.path), logx.Err(err))
		}
		return NewDocument(), nil
	}

	doc, err := decodeDocument(b)
	if err != nil {
		s.log.Warn("state file corrupt; starting from empty document",
			logx.String("path", s.path), logx.Err(err))
		return NewDocument(), nil
	}
	doc.Normalize()
	return doc, nil
}

func (s *fileStore) Save(ctx context.Context, doc *Document) error {
	_ = ctx
	if doc == nil {
		return errors.New("nil document")
	}
	doc.Normalize()

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	// Temp file must live in the target directory for the rename to be atomic.
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// decodeDocument parses the canonical shape, falling back to the legacy
// single-field form the first bot generation wrote ({"last_sent": "<id>"}).
// Legacy ids become a video record with no message reference: they are never
// re-notified but carry nothing to edit or pin. The baseline cursor is set to
// the migration time so history before the upgrade stays quiet.
func decodeDocument(b []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(b, &doc); err == nil {
		if doc.Version > 0 || doc.Notifications != nil || !doc.Cursor.LastSeen.IsZero() {
			return &doc, nil
		}
		// Valid JSON but none of our fields: try the legacy shape below.
	}

	var legacy struct {
		LastSent string `json:"last_sent"`
	}
	if err := json.Unmarshal(b, &legacy); err != nil {
		return nil, err
	}
	if strings.TrimSpace(legacy.LastSent) == "" {
		return nil, errors.New("unrecognized state document shape")
	}

	now := time.Now().UTC()
	doc2 := NewDocument()
	doc2.Upsert(Record{
		VideoID:    legacy.LastSent,
		Kind:       KindVideo,
		NotifiedAt: now,
	})
	doc2.AdvanceCursor(now)
	return doc2, nil
}
