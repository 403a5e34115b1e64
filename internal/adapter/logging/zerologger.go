package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
)

// Options selects the output format and minimum level.
type Options struct {
	Level  string
	Format string // "json" or "console"
	Out    io.Writer
}

// ZeroLogger is an adapter around zerolog.Logger implementing ports.Logger.
type ZeroLogger struct {
	logger zerolog.Logger
}

var _ ports.Logger = (*ZeroLogger)(nil)

// New creates a new ZeroLogger.
func New(opts Options) *ZeroLogger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	zerolog.ErrorFieldName = "err"
	if strings.EqualFold(opts.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(out).Level(parseLevel(opts.Level)).With().Timestamp().Logger()
	return &ZeroLogger{logger: zl}
}

// Nop returns a logger that discards everything.
func Nop() *ZeroLogger {
	return &ZeroLogger{logger: zerolog.Nop()}
}

func (l *ZeroLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, zerolog.DebugLevel, msg, args)
}

func (l *ZeroLogger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, zerolog.InfoLevel, msg, args)
}

func (l *ZeroLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, zerolog.WarnLevel, msg, args)
}

func (l *ZeroLogger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, zerolog.ErrorLevel, msg, args)
}

// With returns a logger that adds the key/value pairs to every entry.
func (l *ZeroLogger) With(args ...any) ports.Logger {
	if len(args) == 0 {
		return l
	}
	return &ZeroLogger{logger: l.logger.With().Fields(normalize(args)).Logger()}
}

func (l *ZeroLogger) log(ctx context.Context, level zerolog.Level, msg string, args []any) {
	e := l.logger.WithLevel(level)
	if e == nil {
		return
	}
	if len(args) > 0 {
		e = e.Fields(normalize(args))
	}
	e.Ctx(ctx).Msg(msg)
}

// normalize turns error values into strings so zerolog renders them under their key.
func normalize(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if err, ok := a.(error); ok && i%2 == 1 {
			out[i] = err.Error()
			continue
		}
		out[i] = a
	}
	return out
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
