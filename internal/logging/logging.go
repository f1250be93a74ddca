// Package logging builds the slog logger shared by aegisdash components.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/aegisai/aegisdash/internal/config"
)

// Level parses a config level name. Unknown names fall back to info.
func Level(name string) slog.Level {
	switch strings.ToLower(name) {
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

// New creates a logger writing to w. verbose forces debug level.
func New(cfg config.LoggingConfig, w io.Writer, verbose bool) *slog.Logger {
	level := Level(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(slog.String("app", "aegisdash"))
}

// Discard returns a logger that drops everything, for tests and one-shot commands
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
