package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn)

	log.Debug("debug")
	log.Info("info")
	log.Warn("warn")
	log.Error("error")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "ERROR", entries[1].Level)
}

func TestLogger_RedactsCardFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug)

	log.Info("tokenizing", "number", "4242424242424242", "cvc", "123", "brand", "visa")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "[REDACTED]", entries[0].Fields["number"])
	assert.Equal(t, "[REDACTED]", entries[0].Fields["cvc"])
	assert.Equal(t, "visa", entries[0].Fields["brand"])
	assert.NotContains(t, buf.String(), "4242424242424242")
}

func TestLogger_WithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo).WithSession("s-1").With("user_id", "u-9")

	log.Info("opened", "error", errors.New("boom"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "s-1", entries[0].Fields["session_id"])
	assert.Equal(t, "u-9", entries[0].Fields["user_id"])
	assert.Equal(t, "boom", entries[0].Fields["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}
