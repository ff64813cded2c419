package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(&buf, zerolog.InfoLevel, false), "session")
	log.Debug().Msg("hidden")
	log.Info().Int("steps", 3).Msg("applied")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "applied", event["message"])
	assert.Equal(t, "session", event["component"])
	assert.Equal(t, float64(3), event["steps"])
	assert.Contains(t, event, "time")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.DebugLevel, true)
	log.Debug().Msg("stage done")
	assert.Contains(t, buf.String(), "stage done")
	assert.NotContains(t, buf.String(), "{")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		" error ": zerolog.ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
