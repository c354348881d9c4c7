package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  slog.Level
	}{
		{name: "debug", level: "debug", want: slog.LevelDebug},
		{name: "info", level: "info", want: slog.LevelInfo},
		{name: "warn", level: "warn", want: slog.LevelWarn},
		{name: "warning alias", level: "warning", want: slog.LevelWarn},
		{name: "error", level: "error", want: slog.LevelError},
		{name: "mixed case", level: "DEBUG", want: slog.LevelDebug},
		{name: "unknown defaults to info", level: "loud", want: slog.LevelInfo},
		{name: "empty defaults to info", level: "", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.level))
		})
	}
}

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	logger.Info("evaluated",
		String(ProcessKey, "triage"),
		String(StageKey, "intake"),
		Int("gates", 2),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "evaluated", entry["msg"])
	assert.Equal(t, "triage", entry["process"])
	assert.Equal(t, "intake", entry["stage"])
	assert.Equal(t, float64(2), entry["gates"])
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "warn", Format: FormatJSON, Output: &buf})

	logger.Info("ignored")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatText, Output: &buf})

	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewNilConfigDefaults(t *testing.T) {
	logger := New(nil)
	require.NotNil(t, logger)
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(New(&Config{Format: FormatJSON, Output: &buf}), "process")

	logger.Info("tick")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "process", entry["component"])
}

func TestWithProcessContext(t *testing.T) {
	var buf bytes.Buffer
	logger := WithProcessContext(New(&Config{Format: FormatJSON, Output: &buf}), "triage", "el-1")

	logger.Info("tick")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "triage", entry[ProcessKey])
	assert.Equal(t, "el-1", entry[ElementIDKey])
}

func TestFromEnv(t *testing.T) {
	t.Setenv("STAGEGATE_DEBUG", "")
	t.Setenv("STAGEGATE_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_SOURCE", "1")

	cfg := FromEnv()
	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, FormatText, cfg.Format)
	assert.True(t, cfg.AddSource)

	t.Setenv("STAGEGATE_DEBUG", "1")
	cfg = FromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.AddSource)

	t.Setenv("STAGEGATE_DEBUG", "")
	t.Setenv("STAGEGATE_LOG_LEVEL", "error")
	cfg = FromEnv()
	assert.Equal(t, "error", cfg.Level)
}
