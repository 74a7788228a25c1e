// File: internal/logger/logger.go
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Environment variable consulted for the log level when --debug is not given
const LevelEnvVar = "OPSKIT_LOG_LEVEL"

func NewLogger(debug bool) *slog.Logger {
	level := ParseLevel(os.Getenv(LevelEnvVar))
	if debug {
		level = slog.LevelDebug
	}
	return New(os.Stderr, level)
}

// Builds a text logger on w and installs it as the slog default
func New(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(w, opts)

	logger := slog.New(handler)

	slog.SetDefault(logger)
	return logger
}

// Maps debug/info/warn/error to a level; anything else is Info
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
