package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NoOutputsIsNop(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.Disabled, l.GetLevel())
	assert.Empty(t, l.Path())
	assert.NoError(t, l.Close())
}

func TestNew_FileLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := New(Config{Dir: dir, Debug: true})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, FileName), l.Path())
	assert.Equal(t, zerolog.DebugLevel, l.GetLevel())

	l.Component("catalog").Debug().Str("source", "installed").Int("page", 3).Msg("installed page loaded")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "catalog", entry["component"])
	assert.Equal(t, "installed", entry["source"])
	assert.Equal(t, float64(3), entry["page"])
	assert.Equal(t, "installed page loaded", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNew_InfoLevelDropsDebug(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{Dir: dir})
	require.NoError(t, err)

	l.Debug().Msg("hidden")
	l.Info().Msg("shown")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithConsole(Config{Console: true}, &buf)
	require.NoError(t, err)

	l.Warn().Str("source", "catalog").Msg("catalog page failed")
	out := buf.String()
	assert.Contains(t, out, "catalog page failed")
	assert.Contains(t, out, "source=")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"), "console output should not be JSON")
}

func TestClose_Idempotent(t *testing.T) {
	l, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, l.Close())
	assert.NoError(t, l.Close())
	assert.Empty(t, l.Path())

	var nilLogger *Logger
	assert.NoError(t, nilLogger.Close())
	assert.NoError(t, Nop().Close())
}
