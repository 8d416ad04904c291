// Package logger configures the structured slog logger shared by the gallery
// service and its command-line tools.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat is the output encoding of log records
type LogFormat string

const (
	// FormatJSON is the production default
	FormatJSON LogFormat = "json"
	// FormatText is easier to read during local development
	FormatText LogFormat = "text"
)

// Options controls how a logger is built
type Options struct {
	Level  slog.Level
	Format LogFormat
	Output io.Writer
}

// New builds a logger from LOG_LEVEL (debug, info, warn, error) and
// LOG_FORMAT (json, text), writing to stdout.
func New() *slog.Logger {
	return NewWithOptions(Options{
		Level:  ParseLevel(os.Getenv("LOG_LEVEL")),
		Format: ParseFormat(os.Getenv("LOG_FORMAT")),
		Output: os.Stdout,
	})
}

// NewWithOptions builds a logger from explicit options
func NewWithOptions(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.Level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch opts.Format {
	case FormatText:
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	return slog.New(handler).With("service", "lens")
}

// ParseLevel maps a level name to a slog.Level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat maps a format name to a LogFormat, defaulting to JSON
func ParseFormat(s string) LogFormat {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatText)) {
		return FormatText
	}
	return FormatJSON
}

// SetDefault installs logger as the process-wide slog default
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
