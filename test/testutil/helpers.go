package testutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/enpass/internal/config"
	"github.com/TheMichaelB/enpass/internal/events"
)

// LogEntry is a decoded JSON log line.
type LogEntry struct {
	Level   string                 `json:"level"`
	Message string                 `json:"msg"`
	Fields  map[string]interface{} `json:"-"`
}

// NewTestLogger creates a debug JSON logger writing into the returned buffer.
func NewTestLogger() (*events.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return events.NewTestLogger(events.DebugLevel, "json", &buf), &buf
}

// ParseLogs decodes JSON log lines.
func ParseLogs(t testing.TB, buf *bytes.Buffer) []LogEntry {
	t.Helper()

	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var fields map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &fields))

		entry := LogEntry{Fields: fields}
		entry.Level, _ = fields["level"].(string)
		entry.Message, _ = fields["msg"].(string)
		entries = append(entries, entry)
	}
	return entries
}

// TestConfig returns the default configuration with spinner and color off.
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.Spinner = false
	cfg.Output.Color = false
	cfg.Log.Color = false
	cfg.Log.Level = "debug"
	return cfg
}
