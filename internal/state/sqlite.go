//go:build sqlite
// +build sqlite

package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

// sqliteStore keeps the document as one row. The JSON payload is the same as
// the file driver's, so both drivers share decode and self-heal behavior.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state(
		id INTEGER PRIMARY KEY CHECK (id = 1),
		doc TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) (*Document, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite store closed")
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM state WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return NewDocument(), nil
	}
	if err != nil {
		s.log.Warn("state row unreadable; starting from empty document", logx.Err(err))
		return NewDocument(), nil
	}

	doc, derr := decodeDocument([]byte(raw))
	if derr != nil {
		s.log.Warn("state row corrupt; starting from empty document", logx.Err(derr))
		return NewDocument(), nil
	}
	doc.Normalize()
	return doc, nil
}

func (s *sqliteStore) Save(ctx context.Context, doc *Document) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store closed")
	}
	if doc == nil {
		return errors.New("nil document")
	}
	doc.Normalize()

	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO state(id, doc) VALUES(1, ?)
		 ON CONFLICT(id) DO UPDATE SET doc=excluded.doc`,
		string(b),
	)
	return err
}
