package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.True(t, cfg.AgentStreaming)
	assert.Equal(t, 60*time.Second, cfg.AgentIdleTimeout)
	assert.Equal(t, 20, cfg.SessionListLimit)
	assert.Equal(t, "X-User-ID", cfg.UserIDHeader)
	assert.NotContains(t, cfg.DatabaseURL, "cache=shared")
	assert.Contains(t, cfg.DatabaseURL, "_busy_timeout=")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("AGENT_STREAMING", "false")
	t.Setenv("AGENT_IDLE_TIMEOUT_MS", "1500")
	t.Setenv("SESSION_LIST_LIMIT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.False(t, cfg.AgentStreaming)
	assert.Equal(t, 1500*time.Millisecond, cfg.AgentIdleTimeout)
	assert.Equal(t, 20, cfg.SessionListLimit)
}
