package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" info ":  zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := ParseLevel("")
	assert.False(t, ok)
	_, ok = ParseLevel("loud")
	assert.False(t, ok)
}

func TestNewLoggerHonorsLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: zerolog.WarnLevel, NoColor: true, App: "managectl"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("command", "syncdb").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "command=syncdb")
	assert.Contains(t, out, "app=managectl")
}

func TestDefaultConfigDisablesColorForBuffers(t *testing.T) {
	cfg := defaultConfig(ProfileTest, &bytes.Buffer{})
	assert.True(t, cfg.NoColor)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level)
	assert.False(t, cfg.Timestamp)

	cfg = defaultConfig(ProfileRuntime, &bytes.Buffer{})
	assert.Equal(t, zerolog.InfoLevel, cfg.Level)
	assert.True(t, cfg.Timestamp)
}
