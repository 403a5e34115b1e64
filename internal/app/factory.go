package app

import (
	"context"
	"sync"

	"github.com/gl0bal01/discord-watchlists/internal/adapter/discord"
	"github.com/gl0bal01/discord-watchlists/internal/adapter/feeds"
	"github.com/gl0bal01/discord-watchlists/internal/adapter/ledger"
	"github.com/gl0bal01/discord-watchlists/internal/config"
	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
	"github.com/gl0bal01/discord-watchlists/internal/usecase"
)

// Runner is a monitor ready to execute one batch.
type Runner interface {
	Name() string
	Run(ctx context.Context) (model.RunReport, error)
}

// MonitorFactory builds the named monitor. cleanup releases its ledger and is
// non-nil whenever err is nil.
type MonitorFactory func(name string) (runner Runner, cleanup func(), err error)

// Options are process-wide switches set from the command line.
type Options struct {
	DryRun bool
}

// NewMonitorFactory assembles monitors from configuration. Monitors that post
// to the same webhook share one dispatcher, so spacing holds across them.
func NewMonitorFactory(
	cfg *config.Config,
	formatter ports.Formatter,
	metrics ports.Metrics,
	clock ports.Clock,
	logger ports.Logger,
	opts Options,
) MonitorFactory {
	var mu sync.Mutex
	notifiers := map[string]*discord.Webhook{}

	notifier := func(url string) *discord.Webhook {
		mu.Lock()
		defer mu.Unlock()
		if w, ok := notifiers[url]; ok {
			return w
		}
		w := discord.NewWebhook(url, discord.Options{
			Timeout:     cfg.Dispatch.Timeout,
			MinInterval: cfg.Dispatch.MinInterval,
			Username:    cfg.Dispatch.Username,
			Clock:       clock,
		}, logger)
		notifiers[url] = w
		return w
	}

	return func(name string) (Runner, func(), error) {
		mc, err := cfg.Monitor(name)
		if err != nil {
			return nil, nil, err
		}

		source, err := feeds.New(mc.Source, feeds.Options{
			Name:         name,
			URL:          mc.URL,
			Headers:      mc.Headers,
			CacheDir:     mc.CacheDir,
			Timeout:      cfg.HTTP.Timeout,
			MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
			Clock:        clock,
		})
		if err != nil {
			return nil, nil, errors.Config("monitors."+name+".source", err)
		}

		store, err := ledger.Open(ledger.Config{
			Driver:      cfg.Ledger.Driver,
			Path:        mc.LedgerPath,
			BusyTimeout: cfg.Ledger.BusyTimeout,
		}, logger, clock)
		if err != nil {
			return nil, nil, err
		}

		monitor := usecase.NewMonitor(name, source, store, formatter, notifier(mc.WebhookURL),
			clock, logger, metrics, usecase.MonitorConfig{DryRun: opts.DryRun})

		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn(context.Background(), "failed to close ledger", "monitor", name, "error", err)
			}
		}
		return monitor, cleanup, nil
	}
}
