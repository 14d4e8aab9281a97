package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tonikukoc07/yt-video-alerts/internal/app"
	"github.com/tonikukoc07/yt-video-alerts/internal/config"
	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

func main() {
	var (
		cfgPath   string
		daemon    bool
		dryRun    bool
		statePath string
	)
	flag.StringVar(&cfgPath, "config", "./ytalerts.yaml", "path to config file (yaml or json; optional when env is set)")
	flag.BoolVar(&daemon, "daemon", false, "keep polling on the configured schedule instead of running one cycle")
	flag.BoolVar(&dryRun, "dry-run", false, "compute and log decisions without sending, pinning or saving")
	flag.StringVar(&statePath, "state", "", "override state file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		if errors.Is(err, config.ErrMissingRequired) {
			fmt.Fprintln(os.Stderr, "set TELEGRAM_TOKEN, CHAT_ID and CHANNEL_ID (env or config file)")
		}
		os.Exit(1)
	}
	if statePath != "" {
		cfg.State.Path = statePath
	}

	log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console == nil || *cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer log.Close()

	mgr := config.NewManager(cfgPath, cfg, log.With(logx.String("comp", "config")))
	a := app.New(mgr, log, dryRun)

	if daemon {
		err = a.RunDaemon(ctx)
	} else {
		err = a.RunCycle(ctx)
	}
	_ = a.Close()
	if err != nil {
		log.Error("run failed", logx.Err(err))
		os.Exit(1)
	}
}
