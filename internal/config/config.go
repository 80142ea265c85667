// Package config provides configuration for the resume chat service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Agent service
	AgentURL         string
	AgentStreaming   bool
	AgentIdleTimeout time.Duration

	// Sessions
	PersistTimeout   time.Duration
	SessionListLimit int
	MaxMessageBytes  int
	UserIDHeader     string

	// WebSocket relay
	WSPingInterval   time.Duration
	WSWriteTimeout   time.Duration
	WSReadTimeout    time.Duration
	WSMaxMessageSize int64

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:      getEnv("DATABASE_URL", "file:resumechat.db?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"),
		AgentURL:         getEnv("AGENT_URL", "http://localhost:8001"),
		AgentStreaming:   getEnvBool("AGENT_STREAMING", true),
		AgentIdleTimeout: time.Duration(getEnvInt("AGENT_IDLE_TIMEOUT_MS", 60000)) * time.Millisecond,
		PersistTimeout:   time.Duration(getEnvInt("PERSIST_TIMEOUT_MS", 10000)) * time.Millisecond,
		SessionListLimit: getEnvInt("SESSION_LIST_LIMIT", 20),
		MaxMessageBytes:  getEnvInt("MAX_MESSAGE_BYTES", 32768),
		UserIDHeader:     getEnv("USER_ID_HEADER", "X-User-ID"),
		WSPingInterval:   time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WSWriteTimeout:   time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		WSReadTimeout:    time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		WSMaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultVal
}
