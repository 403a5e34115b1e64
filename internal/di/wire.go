//go:build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/gl0bal01/discord-watchlists/internal/adapter/clock"
	"github.com/gl0bal01/discord-watchlists/internal/adapter/metrics"
	"github.com/gl0bal01/discord-watchlists/internal/app"
	"github.com/gl0bal01/discord-watchlists/internal/config"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/format"
)

// InitializeApp wires the application components together.
func InitializeApp(cfg *config.Config, opts app.Options) (*app.App, error) {
	wire.Build(
		ProvideLogger,
		clock.NewSystem,
		wire.Bind(new(ports.Clock), new(clock.System)),
		format.NewDefault,
		wire.Bind(new(ports.Formatter), new(*format.Formatter)),
		metrics.New,
		wire.Bind(new(ports.Metrics), new(*metrics.Recorder)),
		app.NewMonitorFactory,
		app.New,
	)
	return nil, nil
}
