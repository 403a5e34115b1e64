package ports

import "github.com/gl0bal01/discord-watchlists/internal/domain/model"

// Metrics records the outcome of monitor runs.
type Metrics interface {
	ObserveRun(report model.RunReport, err error)
}
