package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sistemamasajes/integracion/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)
	require.Equal(t, 0, buff.Len())

	templogger.Logger.Info().Str("task_id", "abc").Msg("Test")

	require.Contains(t, buff.String(), `"message":"Test"`)
	require.Contains(t, buff.String(), `"task_id":"abc"`)
	require.NoError(t, templogger.Close())
}

func TestLogConsole(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Console(true).Make()
	require.NoError(t, err)

	templogger.Logger.Warn().Msg("core unavailable")

	assert.Contains(t, buff.String(), "core unavailable")
	assert.NotContains(t, buff.String(), `"message"`)
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "integracion.log")
	templogger, err := logger.New().FromPath(path).Rotation(1, 1, 1).Make()
	require.NoError(t, err)

	templogger.Logger.Info().Msg("written to file")
	require.NoError(t, templogger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    zerolog.Level
		wantErr bool
	}{
		{name: "", want: zerolog.InfoLevel},
		{name: "debug", want: zerolog.DebugLevel},
		{name: "warn", want: zerolog.WarnLevel},
		{name: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := logger.ParseLevel(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
