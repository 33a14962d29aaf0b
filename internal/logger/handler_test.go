package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "json", "info").Info("trash listed", "module", "polls", "total", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "trash listed", record["msg"])
	assert.Equal(t, "polls", record["module"])

	buf.Reset()
	New(&buf, "text", "info").Info("trash listed", "module", "polls")
	assert.Contains(t, buf.String(), "trash listed")
	assert.Contains(t, buf.String(), "module")
}

func TestPrettyHandlerLevelsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.With("request_id", "r1").WithGroup("audit").Warn("entry dropped", "reason", "queue full")
	out := buf.String()
	assert.Contains(t, out, "entry dropped")
	assert.Contains(t, out, "request_id")
	assert.Contains(t, out, "audit.reason")
	assert.Contains(t, out, `"queue full"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
