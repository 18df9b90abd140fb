// Package log provides structured logging for facecam.
// It wraps slog with sensible defaults for production use.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	mu     sync.Mutex
)

// Options configures the global logger.
type Options struct {
	// Level is "debug", "info", "warn" or "error".
	Level string

	// Format is "text" or "json". Empty picks JSON when GO_ENV is
	// "production" and text otherwise.
	Format string

	// Output defaults to stdout.
	Output io.Writer
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Setup builds the global logger and installs it as slog's default.
func Setup(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}

	format := opts.Format
	if format == "" {
		// Use JSON in production, text in development
		format = "text"
		if os.Getenv("GO_ENV") == "production" {
			format = "json"
		}
	}

	var l *slog.Logger
	if format == "json" {
		l = slog.New(slog.NewJSONHandler(out, handlerOpts))
	} else {
		l = slog.New(slog.NewTextHandler(out, handlerOpts))
	}

	mu.Lock()
	logger = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

// Init initializes the global logger with the specified level, keeping
// an existing logger if one was already set up.
func Init(level string) {
	mu.Lock()
	done := logger != nil
	mu.Unlock()
	if !done {
		Setup(Options{Level: level})
	}
}

// L returns the global logger instance.
func L() *slog.Logger {
	Init("info")
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Component returns the global logger tagged with a component name.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}
