package ports

import (
	"context"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
)

// Notifier sends notifications to downstream channels (e.g. Discord).
type Notifier interface {
	Send(ctx context.Context, notification model.Notification) error
}
