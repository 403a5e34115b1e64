// Package feeds implements ports.Source for the upstream watchlists.
package feeds

import (
	"net/http"
	"time"

	"github.com/gl0bal01/discord-watchlists/internal/adapter/clock"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

// Source kinds understood by New.
const (
	KindKEV        = "kev"
	KindFBI        = "fbi"
	KindEuropol    = "europol"
	KindRansomware = "ransomware"
)

const (
	defaultTimeout = 30 * time.Second
	defaultMaxBody = 64 << 20
)

// Options configures a source adapter.
type Options struct {
	// Name is the monitor name, used in errors and for the snapshot file.
	Name    string
	URL     string
	Headers map[string]string
	// CacheDir receives raw snapshots for feeds that keep one. Empty disables caching.
	CacheDir     string
	Timeout      time.Duration
	MaxBodyBytes int64
	Client       *http.Client
	Clock        ports.Clock
}

func clockOrSystem(c ports.Clock) ports.Clock {
	if c == nil {
		return clock.NewSystem()
	}
	return c
}

// Kinds lists the supported source kinds.
func Kinds() []string {
	return []string{KindKEV, KindFBI, KindEuropol, KindRansomware}
}

// New builds the source adapter for kind.
func New(kind string, opts Options) (ports.Source, error) {
	if opts.URL == "" {
		return nil, errors.Newf("source %s: feed url is empty", kind)
	}
	if opts.Name == "" {
		opts.Name = kind
	}
	switch kind {
	case KindKEV:
		return NewKEV(opts), nil
	case KindFBI:
		return NewFBI(opts), nil
	case KindEuropol:
		return NewEuropol(opts), nil
	case KindRansomware:
		return NewRansomware(opts), nil
	default:
		return nil, errors.Newf("unknown source kind: %s", kind)
	}
}
