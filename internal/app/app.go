package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"github.com/tonikukoc07/yt-video-alerts/internal/config"
	"github.com/tonikukoc07/yt-video-alerts/internal/engine"
	"github.com/tonikukoc07/yt-video-alerts/internal/feed"
	"github.com/tonikukoc07/yt-video-alerts/internal/live"
	"github.com/tonikukoc07/yt-video-alerts/internal/notify"
	"github.com/tonikukoc07/yt-video-alerts/internal/notify/telegram"
	"github.com/tonikukoc07/yt-video-alerts/internal/state"
	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

const (
	defaultSchedule = "2m"
	cycleTimeout    = 3 * time.Minute
)

// App ties config to one evaluation cycle. In one-shot mode it runs a single
// cycle and exits (the external scheduler owns the cadence); in daemon mode
// it owns the cadence itself, the way the first generation of this bot did
// with a sleep loop.
//
// Collaborators (bot session, state store, feed client) are built once and
// reused across cycles; they are rebuilt only when the Manager hands out a
// reloaded config.
type App struct {
	mgr    *config.Manager
	log    logx.Logger
	dryRun bool

	// cycleMu serializes cycles: the state store assumes a single writer.
	cycleMu sync.Mutex
	built   *cycleDeps
}

// cycleDeps is one config generation's worth of wired collaborators.
type cycleDeps struct {
	cfg    *config.Config
	runner *engine.Runner
	store  state.Store
}

// newSink is a seam for tests; telebot's constructor calls getMe.
var newSink = func(cfg telegram.Config, log logx.Logger) (notify.Sink, error) {
	return telegram.New(cfg, log)
}

func New(mgr *config.Manager, log logx.Logger, dryRun bool) *App {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &App{mgr: mgr, log: log, dryRun: dryRun}
}

// RunCycle runs one evaluation cycle against the current config.
func (a *App) RunCycle(ctx context.Context) error {
	a.cycleMu.Lock()
	defer a.cycleMu.Unlock()

	cfg := a.mgr.Get()
	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := a.depsFor(cfg)
	if err != nil {
		return err
	}
	return deps.runner.Cycle(ctx)
}

// Close releases the cached collaborators. Safe to call more than once.
func (a *App) Close() error {
	a.cycleMu.Lock()
	defer a.cycleMu.Unlock()
	if a.built == nil {
		return nil
	}
	err := a.built.store.Close()
	a.built = nil
	return err
}

// depsFor returns the collaborators for cfg, reusing the cached set while the
// Manager keeps handing out the same config generation. Callers hold cycleMu.
func (a *App) depsFor(cfg *config.Config) (*cycleDeps, error) {
	if a.built != nil && a.built.cfg == cfg {
		return a.built, nil
	}
	if a.built != nil {
		_ = a.built.store.Close()
		a.built = nil
		a.log.Info("config changed; rebuilding")
	}

	fetchTimeout, err := config.ParseDurationOrDefault("youtube.fetch_timeout", cfg.YouTube.FetchTimeout, 15*time.Second)
	if err != nil {
		return nil, err
	}
	probeTimeout, err := config.ParseDurationOrDefault("youtube.probe_timeout", cfg.YouTube.ProbeTimeout, 8*time.Second)
	if err != nil {
		return nil, err
	}
	busyTimeout, err := config.ParseDurationField("state.busy_timeout", cfg.State.BusyTimeout)
	if err != nil {
		return nil, err
	}

	sink, err := newSink(telegram.Config{
		Token:      cfg.Telegram.Token,
		ChatID:     cfg.Telegram.ChatID,
		ThreadID:   cfg.Telegram.ThreadID,
		RatePerSec: cfg.Telegram.RatePerSec,
	}, a.log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	store, err := state.Open(state.Config{
		Driver:      cfg.State.Driver,
		Path:        cfg.State.Path,
		BusyTimeout: busyTimeout,
	}, a.log.With(logx.String("comp", "state")))
	if err != nil {
		return nil, fmt.Errorf("state store: %w", err)
	}

	source := feed.NewYouTubeSource(cfg.YouTube.EffectiveFeedURL(), fetchTimeout,
		a.log.With(logx.String("comp", "feed")))
	prober := live.NewPageProber(probeTimeout, a.log.With(logx.String("comp", "live")))
	resolver := live.NewResolver(prober, cfg.YouTube.ProbeWorkers)

	renderer := notify.NewRenderer(notify.RenderOptions{
		VideoTemplate:   cfg.Notify.VideoTemplate,
		LiveTemplate:    cfg.Notify.LiveTemplate,
		AttachThumbnail: cfg.Notify.AttachThumbnail == nil || *cfg.Notify.AttachThumbnail,
		DisablePreview:  cfg.Notify.DisablePreview,
	})

	runner := engine.New(engine.Options{
		Source:      source,
		Resolver:    resolver,
		Sink:        sink,
		Store:       store,
		Renderer:    renderer,
		Log:         a.log.With(logx.String("comp", "engine")),
		WindowLimit: cfg.YouTube.WindowLimit,
		DryRun:      a.dryRun,
	})

	a.built = &cycleDeps{cfg: cfg, runner: runner, store: store}
	return a.built, nil
}

// RunDaemon polls on the configured schedule until ctx is done.
// The config file is hot-reloaded between cycles; under systemd it reports
// readiness and feeds the watchdog.
func (a *App) RunDaemon(ctx context.Context) error {
	cfg := a.mgr.Get()
	scheduleRaw := cfg.Poll.Schedule
	if scheduleRaw == "" {
		scheduleRaw = defaultSchedule
	}
	spec, err := ParseSchedule(scheduleRaw)
	if err != nil {
		return fmt.Errorf("poll.schedule: %w", err)
	}

	go a.mgr.Watch(ctx)

	_, _ = sd.SdNotify(false, sd.SdNotifyReady)
	defer func() { _, _ = sd.SdNotify(false, sd.SdNotifyStopping) }()
	a.startWatchdog(ctx)

	run := func() {
		cctx, cancel := context.WithTimeout(ctx, cycleTimeout)
		defer cancel()
		if err := a.RunCycle(cctx); err != nil {
			a.log.Error("cycle failed", logx.Err(err))
		}
	}

	a.log.Info("polling started", logx.String("schedule", scheduleRaw))
	run() // first cycle immediately, like the original loop

	switch spec.Kind {
	case SpecCron:
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		c := cron.New(cron.WithParser(parser))
		if _, err := c.AddFunc(spec.Cron, run); err != nil {
			return fmt.Errorf("poll.schedule: %w", err)
		}
		c.Start()
		<-ctx.Done()
		stopCtx := c.Stop()
		<-stopCtx.Done()

	case SpecInterval:
		t := time.NewTicker(spec.Every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				a.log.Info("polling stopped")
				return nil
			case <-t.C:
				run()
			}
		}
	}

	a.log.Info("polling stopped")
	return nil
}

// startWatchdog keeps systemd's watchdog fed when one is configured.
func (a *App) startWatchdog(ctx context.Context) {
	interval, err := sd.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = sd.SdNotify(false, sd.SdNotifyWatchdog)
			}
		}
	}()
}
