// Package di assembles the application with google/wire.
package di

import (
	"github.com/gl0bal01/discord-watchlists/internal/adapter/logging"
	"github.com/gl0bal01/discord-watchlists/internal/config"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
)

// ProvideLogger builds the process logger from the log section of cfg.
func ProvideLogger(cfg *config.Config) ports.Logger {
	return logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
}
