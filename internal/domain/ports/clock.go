package ports

import (
	"context"
	"time"
)

// Clock abstracts wall time so spacing and date-based URLs are testable.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}
