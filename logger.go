package goSession

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds a structured logger writing to w at the configured level.
// Level "off" returns a logger that discards everything.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	lvl, ok := parseLevel(cfg.Level)
	if !ok || w == nil || strings.EqualFold(strings.TrimSpace(cfg.Level), "off") {
		return discardLogger()
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "off":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
