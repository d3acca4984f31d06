// Package logger builds the process-wide slog logger.
//
// Production uses JSON lines for log aggregation; every other environment
// gets the human-readable text handler at debug level.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a logger for the given APP_ENV value writing to w.
func New(env string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// Setup builds the logger for env and installs it as the slog default.
func Setup(env string) *slog.Logger {
	l := New(env, os.Stdout)
	slog.SetDefault(l)
	return l
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Component tags l with the owning component, falling back to the default logger.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", name)
}
