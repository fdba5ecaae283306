// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

var level = new(slog.LevelVar)

// ParseLevel maps DEBUG, INFO, WARN, or ERROR (any case) to a slog level.
// Unknown values fall back to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Configure installs a text handler writing to w as the default logger and
// returns it.
func Configure(w io.Writer, lvl string) *slog.Logger {
	level.Set(ParseLevel(lvl))
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
