package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("debug")

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			SetLevel(tt.in)
			require.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestConfigure(t *testing.T) {
	original := Log
	defer func() {
		Log = original
		SetLevel("debug")
	}()

	Configure("error", "json")
	require.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())

	Configure("info", "console")
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestConsoleLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := newConsoleLogger(&buf)

	l.Info().Str("user_hash", "abcd1234").Msg("gasto registrado")

	require.Contains(t, buf.String(), "gasto registrado")
	require.Contains(t, buf.String(), "abcd1234")
}
