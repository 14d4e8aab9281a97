package state

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

// Store is the persistence API the engine runs against.
//
// Load never returns an error for a corrupt or missing document; it recovers
// to a normalized empty document and logs the fact. The returned error is
// reserved for I/O that cannot even be attempted (driver closed).
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	Close() error
}

// Config configures the store.
//
// Driver values:
//   - "file" (default when empty): single JSON document, atomic writes
//   - "sqlite": SQLite database file (build with -tags sqlite)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown state driver: " + driver)
	}
}
