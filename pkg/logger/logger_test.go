package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	l.Info().Msg("hidden")
	l.Warn().Str("ticker", "AAPL").Msg("capability failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "AAPL", entry["ticker"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "caller")
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "loud", Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}
