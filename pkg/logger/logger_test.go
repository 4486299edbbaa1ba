package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("reference", "b4c1").Msg("checkout created")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "checkout created", out["message"])
	assert.Equal(t, "b4c1", out["reference"])
	assert.Equal(t, "info", out["level"])
	assert.Equal(t, ServiceName, out["service"])
	assert.Contains(t, out, "time")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"disabled", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewWithWriter_Filtering(t *testing.T) {
	tests := []struct {
		level     string
		emit      func(zerolog.Logger)
		wantEmpty bool
	}{
		{"debug", func(l zerolog.Logger) { l.Debug().Msg("x") }, false},
		{"info", func(l zerolog.Logger) { l.Debug().Msg("x") }, true},
		{"error", func(l zerolog.Logger) { l.Warn().Msg("x") }, true},
		{"error", func(l zerolog.Logger) { l.Error().Msg("x") }, false},
		{"bogus", func(l zerolog.Logger) { l.Info().Msg("x") }, false},
		{"disabled", func(l zerolog.Logger) { l.Error().Msg("x") }, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		tt.emit(NewWithWriter(tt.level, &buf))
		assert.Equal(t, tt.wantEmpty, buf.Len() == 0, "level %q", tt.level)
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(NewWithWriter("info", &buf), "reconcile")

	log.Info().Msg("tick")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "reconcile", out["component"])
	assert.Equal(t, ServiceName, out["service"])
}

func TestNew_PrettyDoesNotPanic(t *testing.T) {
	log := New("info", true)
	log.Info().Msg("pretty mode")
}
