package ports

import "github.com/gl0bal01/discord-watchlists/internal/domain/model"

// Formatter maps a record to a notification. It is pure and never fails.
type Formatter interface {
	Build(record model.Record) model.Notification
}
