package config

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

// Manager hands the current config to the daemon loop and hot-reloads it when
// the file changes. One-shot runs never construct a Manager; they call Load()
// and exit.
type Manager struct {
	path string
	log  logx.Logger

	mu  sync.RWMutex
	cfg *Config
}

func NewManager(path string, cfg *Config, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{path: path, cfg: cfg, log: log}
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) commit(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Watch blocks until ctx is done, reloading the config file on change.
// A reload that fails to parse or validate is rejected and the previous
// config stays active; partial editor writes are absorbed by a short debounce.
func (m *Manager) Watch(ctx context.Context) {
	if m.path == "" {
		<-ctx.Done()
		return
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		m.log.Warn("config watch unavailable", logx.Err(err))
		<-ctx.Done()
		return
	}
	defer w.Close()

	// Watch the directory: editors replace files rather than write in place.
	if err := w.Add(dirOf(m.path)); err != nil {
		m.log.Warn("config watch failed", logx.Err(err), logx.String("path", m.path))
		<-ctx.Done()
		return
	}

	var timer *time.Timer
	var timerMu sync.Mutex
	reload := func() {
		cfg, err := Load(m.path)
		if err != nil {
			m.log.Warn("config reload rejected", logx.String("path", m.path), logx.Err(err))
			return
		}
		m.commit(cfg)
		m.log.Info("config reloaded", logx.String("path", m.path))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !sameFile(ev.Name, m.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// debounce to avoid partial writes
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(250*time.Millisecond, reload)
			timerMu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			m.log.Warn("config watch error", logx.Err(err))
		}
	}
}
