package app

import (
	"log/slog"
	"os"
	"strings"

	"courier-dispatch/internal/logx"
)

// NewLogger returns a JSON logger on stdout. LOG_LEVEL selects the level
// (debug, info, warn, error); anything else means info.
func NewLogger() logx.Logger {
	base := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}))
	return logx.NewSlogAdapter(base)
}

func parseLevel(s string) slog.Level {
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
