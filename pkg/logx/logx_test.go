package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	ConfigureOutput(&buf, level, false)
	t.Cleanup(func() { ConfigureOutput(&bytes.Buffer{}, "info", false) })
	return &buf
}

func TestLoggerWritesComponentAndMessage(t *testing.T) {
	buf := captureJSON(t, "info")

	NewLogger("guard").Info("cooldown armed for %ds", 60)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "guard", entry["component"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "cooldown armed for 60s", entry["message"])
}

func TestLevelFiltering(t *testing.T) {
	buf := captureJSON(t, "warn")
	logger := NewLogger("test")

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "debug",
		"WARN":    "warn",
		" error ": "error",
		"":        "info",
		"bogus":   "info",
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in).String(), "input %q", in)
	}
}

func TestWrap(t *testing.T) {
	buf := captureJSON(t, "info")

	assert.NoError(t, Wrap(nil, "noop"))

	cause := errors.New("disk full")
	err := Wrap(cause, "open memory store")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "open memory store: disk full", err.Error())
	assert.True(t, strings.Contains(buf.String(), "open memory store: disk full"))
}

func TestFields(t *testing.T) {
	buf := captureJSON(t, "info")

	NewLogger("orchestrator").Fields(map[string]any{"mode": "fallback"}, "request served")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fallback", entry["mode"])
	assert.Equal(t, "request served", entry["message"])
}
