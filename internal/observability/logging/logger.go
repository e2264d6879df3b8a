package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the process-wide structured logger. Format is "json"
// (default) or "text"; level strings are case-insensitive and unknown
// values fall back to info.
func New(service, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("service", service)
}

// NewJSONLogger is the common case: JSON output for log shippers.
func NewJSONLogger(service, level string) *slog.Logger {
	return New(service, level, "json")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
