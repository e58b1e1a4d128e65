// Package app assembles the process: config, logging, storage, the
// feed client, the poll loop, the bot transport, and the optional
// status server and digest. Start order is storage-out, stop order is
// the reverse.
package app

import (
	"context"
	"errors"
	"time"

	"domabot/internal/config"
	"domabot/internal/digest"
	"domabot/internal/doma"
	"domabot/internal/poller"
	"domabot/internal/status"
	"domabot/internal/storage"
	"domabot/internal/transport/telegram"
	"domabot/pkg/logx"
)

type App struct {
	cfgm     *config.Manager
	log      logx.Logger
	closeLog func() error

	store   storage.Store
	adapter *telegram.Adapter
	poll    *poller.Poller
	status  *status.Server
	digest  *digest.Digest

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// New loads the config and builds the root logger. Everything else is
// deferred to Start so a failed boot leaves nothing half-running.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath, logx.NewConsole("info"))
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		return nil, err
	}

	return &App{cfgm: cfgm, log: log, closeLog: closeLog}, nil
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Current()

	busy, err := config.ParseDurationOr("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, a.log)
	if err != nil {
		return err
	}
	a.store = store

	pollTimeout, err := config.ParseDurationOr("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:          cfg.Telegram.Token,
		PollTimeout:    pollTimeout,
		SendRatePerSec: cfg.Telegram.SendRatePerSec,
		Owners:         cfg.Telegram.OwnerChatIDs,
	}, a.log)
	if err != nil {
		return err
	}
	a.adapter = adapter

	client := doma.New(doma.Config{
		BaseURL:       cfg.Doma.BaseURL,
		APIKey:        cfg.Doma.APIKey,
		APIHeader:     cfg.Doma.APIHeader,
		Simulate:      cfg.Doma.Simulate,
		EventTypes:    cfg.Doma.EventTypes,
		FinalizedOnly: cfg.Doma.FinalizedOnly,
		PageLimit:     cfg.Doma.PageLimit,
	}, a.log)

	a.poll = poller.New(pollerConfig(cfg), client, store, adapter, a.log)
	adapter.RegisterCommands(telegram.CommandDeps{Store: store, Poller: a.poll})

	adapter.Start()
	a.poll.Start()

	if cfg.Status.Enabled {
		a.status = status.New(cfg.Status.Addr, a.poll, store, a.log)
		a.status.Start()
	}

	if cfg.Digest.Enabled {
		d, err := digest.New(cfg.Digest.Schedule, cfg.Telegram.OwnerChatIDs, a.poll, store, adapter, a.log)
		if err != nil {
			return err
		}
		a.digest = d
		d.Start()
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	a.watchCancel = cancel
	a.watchDone = make(chan struct{})
	go func() {
		defer close(a.watchDone)
		if err := a.cfgm.Watch(watchCtx, a.applyConfig); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.log.Info("started",
		logx.Bool("simulate", cfg.Doma.Simulate),
		logx.Bool("dry_run", cfg.Poller.DryRun),
		logx.Bool("status", cfg.Status.Enabled),
		logx.Bool("digest", cfg.Digest.Enabled),
	)
	return nil
}

// applyConfig hot-applies what the running components accept: the poll
// interval and dry-run. Everything else (token, storage, feed endpoint,
// status server) needs a restart and is only reported.
func (a *App) applyConfig(cfg *config.Config) {
	a.poll.SetConfig(pollerConfig(cfg))
	a.log.Info("poller settings applied",
		logx.Int("interval_seconds", cfg.Poller.IntervalSeconds),
		logx.Bool("dry_run", cfg.Poller.DryRun),
	)
	a.log.Info("other config sections take effect on restart")
}

func pollerConfig(cfg *config.Config) poller.Config {
	return poller.Config{
		Interval: time.Duration(cfg.Poller.IntervalSeconds) * time.Second,
		DryRun:   cfg.Poller.DryRun,
	}
}

// Stop shuts the components down in reverse start order. Each step is
// best-effort; the first error is returned after everything ran.
func (a *App) Stop(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.watchCancel != nil {
		a.watchCancel()
		select {
		case <-a.watchDone:
		case <-ctx.Done():
		}
	}
	if a.digest != nil {
		keep(a.digest.Stop(ctx))
	}
	if a.status != nil {
		keep(a.status.Stop(ctx))
	}
	if a.poll != nil {
		keep(a.poll.Stop(ctx))
	}
	if a.adapter != nil {
		keep(a.adapter.Stop(ctx))
	}
	if a.store != nil {
		keep(a.store.Close())
	}

	a.log.Info("stopped")
	if a.closeLog != nil {
		keep(a.closeLog())
	}
	return firstErr
}
