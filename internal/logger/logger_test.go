// File: internal/logger/logger_test.go
package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" DEBUG ": slog.LevelDebug,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseLevel(input), "input %q", input)
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn)

	log.Info("hidden")
	log.Warn("shown", "prefix", "a/")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "prefix=a/")
}

func TestNewLogger_DebugFlagWins(t *testing.T) {
	t.Setenv(LevelEnvVar, "error")
	log := NewLogger(true)
	assert.True(t, log.Enabled(t.Context(), slog.LevelDebug))

	log = NewLogger(false)
	assert.False(t, log.Enabled(t.Context(), slog.LevelWarn))
}
