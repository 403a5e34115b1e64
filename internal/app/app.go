package app

import (
	"context"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gl0bal01/discord-watchlists/internal/adapter/metrics"
	"github.com/gl0bal01/discord-watchlists/internal/config"
	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

const shutdownGrace = 30 * time.Second

// App runs monitors once or on their cron schedules.
type App struct {
	cfg     *config.Config
	build   MonitorFactory
	metrics *metrics.Recorder
	logger  ports.Logger
}

// New constructs an App instance.
func New(cfg *config.Config, build MonitorFactory, recorder *metrics.Recorder, logger ports.Logger) *App {
	return &App{cfg: cfg, build: build, metrics: recorder, logger: logger}
}

// MonitorStatus describes a configured monitor and whether it can run.
type MonitorStatus struct {
	Name     string
	Source   string
	Schedule string
	Disabled bool
	// Err is the configuration problem preventing a run, if any.
	Err error
}

// Monitors lists every configured monitor in name order.
func (a *App) Monitors() []MonitorStatus {
	out := make([]MonitorStatus, 0, len(a.cfg.Monitors))
	for _, name := range a.cfg.Names() {
		mc := a.cfg.Monitors[name]
		_, err := a.cfg.Monitor(name)
		out = append(out, MonitorStatus{
			Name:     name,
			Source:   mc.Source,
			Schedule: mc.Schedule,
			Disabled: mc.Disabled,
			Err:      err,
		})
	}
	return out
}

// RunOnce executes one batch of the named monitor and, when a Pushgateway is
// configured, pushes the resulting metrics.
func (a *App) RunOnce(ctx context.Context, name string) (model.RunReport, error) {
	runner, cleanup, err := a.build(name)
	if err != nil {
		a.logger.Error(ctx, "failed to build monitor", "monitor", name, "error", err)
		return model.RunReport{Monitor: name}, err
	}
	defer cleanup()

	report, err := runner.Run(ctx)

	if gw := a.cfg.Metrics.PushGateway; gw != "" && a.metrics != nil {
		if pushErr := a.metrics.Push(ctx, gw, a.cfg.Metrics.Job, name); pushErr != nil {
			a.logger.Warn(ctx, "failed to push metrics", "monitor", name, "error", pushErr)
		}
	}
	return report, err
}

// Serve runs every ready monitor once, then on its schedule, until ctx is done.
// Runs of the same monitor never overlap.
func (a *App) Serve(ctx context.Context) error {
	clog := cronLogger{ctx: ctx, logger: a.logger}
	c := cron.New(cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)))

	scheduled, err := a.scheduleJobs(ctx, c)
	if err != nil {
		return err
	}
	if scheduled == 0 {
		return errors.Config("monitors", errors.New("no monitor is ready to be scheduled"))
	}

	var srv *http.Server
	if addr := a.cfg.Metrics.Listen; addr != "" && a.metrics != nil {
		srv = a.metrics.NewServer(addr)
		go func() {
			a.logger.Info(ctx, "serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error(ctx, "metrics server failed", "error", err)
			}
		}()
	}

	a.logger.Info(ctx, "starting scheduler", "monitors", scheduled)
	c.Start()
	for _, entry := range c.Entries() {
		go entry.WrappedJob.Run()
	}

	<-ctx.Done()
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(shutdownGrace):
		a.logger.Warn(context.Background(), "scheduler stop timed out")
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	a.logger.Info(context.Background(), "scheduler stopped")
	return nil
}

func (a *App) scheduleJobs(ctx context.Context, c *cron.Cron) (int, error) {
	scheduled := 0
	for _, status := range a.Monitors() {
		log := a.logger.With("monitor", status.Name)
		switch {
		case status.Disabled:
			log.Info(ctx, "monitor disabled")
			continue
		case status.Schedule == "":
			log.Info(ctx, "monitor has no schedule")
			continue
		case status.Err != nil:
			log.Warn(ctx, "monitor not ready, skipping", "error", status.Err)
			continue
		}

		name := status.Name
		_, err := c.AddFunc(status.Schedule, func() {
			if _, err := a.RunOnce(ctx, name); err != nil {
				log.Error(ctx, "scheduled run failed", "error", err)
			}
		})
		if err != nil {
			return 0, errors.Config("monitors."+name+".schedule", err)
		}
		log.Info(ctx, "monitor scheduled", "cron", status.Schedule)
		scheduled++
	}
	return scheduled, nil
}

// cronLogger adapts ports.Logger to cron.Logger.
type cronLogger struct {
	ctx    context.Context
	logger ports.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(l.ctx, "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(l.ctx, "cron: "+msg, append(keysAndValues, "error", err)...)
}
