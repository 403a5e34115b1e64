// Package ledger persists the ids of records that were already delivered.
package ledger

import (
	"strings"
	"time"

	"github.com/gl0bal01/discord-watchlists/internal/adapter/clock"
	"github.com/gl0bal01/discord-watchlists/internal/adapter/logging"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

// Drivers understood by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config selects and locates a ledger store.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration
}

// Open initializes the configured ledger. An empty driver means "file".
func Open(cfg Config, log ports.Logger, clk ports.Clock) (ports.Ledger, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log == nil {
		log = logging.Nop()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}

	switch driver {
	case "", DriverFile:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, errors.Config("ledger.path", errors.New("file ledger path is required"))
		}
		return NewFile(cfg.Path, log, clk), nil
	case DriverSQLite, "sqlite3":
		return openSQLite(cfg, clk)
	case DriverMemory:
		return NewMemory(clk), nil
	default:
		return nil, errors.Config("ledger.driver", errors.Newf("unknown ledger driver: %s", driver))
	}
}
