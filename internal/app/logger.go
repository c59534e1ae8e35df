package app

import (
	"io"
	"log/slog"
	"strings"
)

// parseLevel maps a level name such as "debug" or "WARN" onto a slog.Level.
// Unknown names mean info.
func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds a logger writing text or JSON records to outW. Debug
// logging adds source locations. slog.Default is left alone so that several
// apps can coexist in one process.
func NewLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level := parseLevel(levelStr)
	opts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}

	var handler slog.Handler = slog.NewTextHandler(outW, opts)
	if strings.EqualFold(strings.TrimSpace(formatStr), "json") {
		handler = slog.NewJSONHandler(outW, opts)
	}
	return slog.New(handler)
}
