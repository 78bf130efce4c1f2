package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_LevelParsing(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, New("debug").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("nonsense").GetLevel(), "unknown level falls back to info")
	assert.Equal(t, zerolog.InfoLevel, New("").GetLevel())
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf)
	logger.Info().Str("provider", "ALELO").Msg("run")
	assert.Contains(t, buf.String(), `"provider":"ALELO"`)
}
