package ports

import (
	"context"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
)

// Ledger persists the ids of records already delivered.
// A missing store loads as the empty set.
type Ledger interface {
	Load(ctx context.Context) (model.IDSet, error)
	MarkSeen(ctx context.Context, id string) error
	Close() error
}
