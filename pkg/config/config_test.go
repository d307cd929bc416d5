package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sse", cfg.Live.Transport)
	assert.Equal(t, "/updates", cfg.Live.Path)
	assert.False(t, cfg.RedisRequired())
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "api base url must not be empty",
			mutate: func(c *Config) { c.API.BaseURL = "" },
		},
		{
			name:   "api timeout must be > 0",
			mutate: func(c *Config) { c.API.Timeout = 0 },
		},
		{
			name:   "unknown credential backend",
			mutate: func(c *Config) { c.Credentials.Backend = "keychain" },
		},
		{
			name:   "file backend needs a path",
			mutate: func(c *Config) { c.Credentials.Path = "" },
		},
		{
			name:   "unknown live transport",
			mutate: func(c *Config) { c.Live.Transport = "poll" },
		},
		{
			name: "max backoff below initial",
			mutate: func(c *Config) {
				c.Live.InitialBackoff = time.Second
				c.Live.MaxBackoff = time.Millisecond
			},
		},
		{
			name:   "negative reconnect attempts",
			mutate: func(c *Config) { c.Live.MaxReconnectAttempts = -1 },
		},
		{
			name:   "connections per minute must be > 0",
			mutate: func(c *Config) { c.Live.ConnectionsPerMinute = 0 },
		},
		{
			name: "bridge needs a channel",
			mutate: func(c *Config) {
				c.Bus.BridgeEnabled = true
				c.Bus.Channel = ""
			},
		},
		{
			name:   "negative relay failure threshold",
			mutate: func(c *Config) { c.Bus.RelayFailureThreshold = -1 },
		},
		{
			name:   "relay cooldown required with threshold",
			mutate: func(c *Config) { c.Bus.RelayCooldown = 0 },
		},
		{
			name: "redis needs an address when used",
			mutate: func(c *Config) {
				c.Credentials.Backend = "redis"
				c.Redis.Address = ""
			},
		},
		{
			name: "tracing sample rate out of range",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.SampleRate = 2
			},
		},
		{
			name: "status server needs an address",
			mutate: func(c *Config) {
				c.Status.Enabled = true
				c.Status.Address = ""
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_LiveDisabled_IgnoresLiveSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Live.Enabled = false
	cfg.Live.Transport = ""
	cfg.Live.ConnectionsPerMinute = 0

	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().API.Timeout, cfg.API.Timeout)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
api:
  base_url: http://tracker.internal/api
  timeout: 5s
credentials:
  backend: memory
live:
  transport: websocket
  max_reconnect_attempts: 4
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://tracker.internal/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "memory", cfg.Credentials.Backend)
	assert.Equal(t, "websocket", cfg.Live.Transport)
	assert.Equal(t, 4, cfg.Live.MaxReconnectAttempts)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep defaults
	assert.Equal(t, "/updates/ws", cfg.Live.WebSocketPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRACKER_API_URL", "http://env.example/api")
	t.Setenv("TRACKER_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://env.example/api", cfg.API.BaseURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
