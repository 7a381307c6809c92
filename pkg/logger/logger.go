// Package logger configures the process-wide slog logger and carries
// request-scoped loggers through a context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Options configures New.
type Options struct {
	Level     slog.Level
	Format    Format
	Output    io.Writer
	AddSource bool

	// Attrs are attached to every record, e.g. the service name.
	Attrs []slog.Attr
}

// DefaultOptions returns text logging at info level to stdout.
func DefaultOptions() Options {
	return Options{
		Level:  slog.LevelInfo,
		Format: FormatText,
		Output: os.Stdout,
	}
}

// ParseLevel maps a level name to a slog level. Unknown names read as info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "FATAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat maps a format name to a Format. Anything but "json" is text.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

// New builds a logger from opts.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	if opts.Format == FormatJSON {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	}
	if len(opts.Attrs) > 0 {
		handler = handler.WithAttrs(opts.Attrs)
	}
	return slog.New(handler)
}

// Setup builds a logger and installs it as slog's default.
func Setup(opts Options) *slog.Logger {
	log := New(opts)
	slog.SetDefault(log)
	return log
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// Component tags a logger with the emitting component.
func Component(name string) slog.Attr { return slog.String("component", name) }

// Err renders an error attribute; a nil error renders as an empty string.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
