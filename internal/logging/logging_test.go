package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG", zerolog.InfoLevel))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warning ", zerolog.InfoLevel))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off", zerolog.InfoLevel))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("", zerolog.ErrorLevel))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud", zerolog.InfoLevel))
}

func TestFileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "fintrack.log")
	log, closer, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)

	log.Debug().Str("path", "/api/notifications").Msg("fetch")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "fetch", line["message"])
	assert.Equal(t, "/api/notifications", line["path"])
	assert.Equal(t, "debug", line["level"])
}

func TestConsoleSinkRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := New(Options{Level: "warn", Console: true, Out: &buf})
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNoSinksIsNop(t *testing.T) {
	log, closer, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
	assert.NoError(t, closer.Close())
}
