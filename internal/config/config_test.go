package config

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "WS_PORT", "HOST", "SERVER_ID", "REDIS_URL",
		"ECHO_FORMAT", "MAX_BODY_BYTES", "RECORD_CAPACITY", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 8081, cfg.WSPort)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.True(t, strings.HasPrefix(cfg.ServerID, "echo-"))
	assert.Len(t, cfg.ServerID, len("echo-")+8)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, FormatText, cfg.EchoFormat)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Equal(t, 500, cfg.RecordCapacity)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestNewConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("WS_PORT", "9091")
	t.Setenv("SERVER_ID", "echo-test")
	t.Setenv("REDIS_URL", "localhost:6379")
	t.Setenv("ECHO_FORMAT", "JSON")
	t.Setenv("RECORD_CAPACITY", "10")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 9091, cfg.WSPort)
	assert.Equal(t, "echo-test", cfg.ServerID)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Equal(t, FormatJSON, cfg.EchoFormat)
	assert.Equal(t, 10, cfg.RecordCapacity)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "PORT", "eighty"},
		{"ws port", "WS_PORT", "x"},
		{"format", "ECHO_FORMAT", "xml"},
		{"max body", "MAX_BODY_BYTES", "0"},
		{"capacity", "RECORD_CAPACITY", "-1"},
		{"log level", "LOG_LEVEL", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := NewConfig()
			assert.Error(t, err)
		})
	}
}

func TestNewProbeConfig(t *testing.T) {
	clearEnv(t)

	cfg, err := NewProbeConfig()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)

	t.Setenv("LOG_LEVEL", "debug")
	cfg, err = NewProbeConfig()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}
