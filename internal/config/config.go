package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/whookdev/echoprobe/internal/util"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds the echo server settings.
type Config struct {
	Port     int
	Host     string
	ServerID string

	// RedisURL selects the redis recorder when set.
	RedisURL string

	WSPort int

	EchoFormat     string
	MaxBodyBytes   int64
	RecordCapacity int

	LogLevel slog.Level
}

// ProbeConfig holds the few knobs the probe reads from its environment.
// The request itself is fixed and never comes from here.
type ProbeConfig struct {
	LogLevel slog.Level
}

func NewConfig() (*Config, error) {
	godotenv.Load()

	port, err := strconv.Atoi(getEnvWithDefault("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	wsPort, err := strconv.Atoi(getEnvWithDefault("WS_PORT", "8081"))
	if err != nil {
		return nil, fmt.Errorf("invalid websocket port: %w", err)
	}

	maxBody, err := strconv.ParseInt(getEnvWithDefault("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid max body bytes: %w", err)
	}
	if maxBody <= 0 {
		return nil, fmt.Errorf("max body bytes must be positive, got %d", maxBody)
	}

	capacity, err := strconv.Atoi(getEnvWithDefault("RECORD_CAPACITY", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid record capacity: %w", err)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("record capacity must be positive, got %d", capacity)
	}

	format := strings.ToLower(getEnvWithDefault("ECHO_FORMAT", FormatText))
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("invalid echo format %q", format)
	}

	level, err := parseLevel(getEnvWithDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:           port,
		Host:           getEnvWithDefault("HOST", "127.0.0.1"),
		ServerID:       getEnvWithDefault("SERVER_ID", "echo-"+util.GenerateRandomString(8)),
		RedisURL:       os.Getenv("REDIS_URL"),
		WSPort:         wsPort,
		EchoFormat:     format,
		MaxBodyBytes:   maxBody,
		RecordCapacity: capacity,
		LogLevel:       level,
	}, nil
}

func NewProbeConfig() (*ProbeConfig, error) {
	godotenv.Load()

	level, err := parseLevel(getEnvWithDefault("LOG_LEVEL", "warn"))
	if err != nil {
		return nil, err
	}

	return &ProbeConfig{LogLevel: level}, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultValue
}
