package ports

import (
	"context"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
)

// Source fetches the current full snapshot of one feed.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Record, error)
}
