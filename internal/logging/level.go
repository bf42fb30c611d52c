package logging

import (
	"log/slog"
	"strings"
)

// DefaultLevel is the log level used when none is configured.
const DefaultLevel = slog.LevelInfo

// ParseLevel converts a level name to slog.Level. Recognized values are
// "debug", "info", "warn", "error" (case-insensitive).
// Returns (DefaultLevel, false) for anything else.
func ParseLevel(s string) (level slog.Level, ok bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return DefaultLevel, false
	}
}
