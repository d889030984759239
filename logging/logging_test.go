package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Format: "json", Writer: &buf})

	log.Info().Msg("dropped")
	require.Zero(t, buf.Len())

	log.Warn().Str("component", "gateway").Msg("slow")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "warn", rec["level"])
	require.Equal(t, "gateway", rec["component"])
	require.Equal(t, "slow", rec["message"])
}

func TestNew_ConsoleDefaults(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "bogus", Writer: &buf})

	log.Debug().Msg("dropped")
	require.Zero(t, buf.Len())
	log.Info().Msg("hello")
	require.Contains(t, buf.String(), "hello")
	require.Contains(t, buf.String(), "INF")
}
