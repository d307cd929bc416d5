package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	API struct {
		BaseURL   string        `yaml:"base_url"`
		Timeout   time.Duration `yaml:"timeout"`
		UserAgent string        `yaml:"user_agent"`
	} `yaml:"api"`

	Credentials struct {
		Backend  string `yaml:"backend"` // file | redis | memory
		Path     string `yaml:"path"`
		RedisKey string `yaml:"redis_key"`
	} `yaml:"credentials"`

	Live struct {
		Enabled              bool          `yaml:"enabled"`
		Transport            string        `yaml:"transport"` // sse | websocket
		Path                 string        `yaml:"path"`
		WebSocketPath        string        `yaml:"websocket_path"`
		InitialBackoff       time.Duration `yaml:"initial_backoff"`
		MaxBackoff           time.Duration `yaml:"max_backoff"`
		BackoffMultiplier    float64       `yaml:"backoff_multiplier"`
		MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"` // 0 = unlimited
		ConnectionsPerMinute int           `yaml:"connections_per_minute"`
		PingInterval         time.Duration `yaml:"ping_interval"`
		MaxMessageSizeBytes  int64         `yaml:"max_message_size_bytes"`
	} `yaml:"live"`

	Bus struct {
		BridgeEnabled         bool          `yaml:"bridge_enabled"`
		Channel               string        `yaml:"channel"`
		RelayFailureThreshold int           `yaml:"relay_failure_threshold"` // 0 = never suspend
		RelayCooldown         time.Duration `yaml:"relay_cooldown"`
	} `yaml:"bus"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Status struct {
		Enabled           bool    `yaml:"enabled"`
		Address           string  `yaml:"address"`
		RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
		Burst             int     `yaml:"burst"`
	} `yaml:"status"`
}

// RedisRequired reports whether any component is configured to use Redis.
func (c *Config) RedisRequired() bool {
	return c.Credentials.Backend == "redis" || c.Bus.BridgeEnabled
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// API
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0")
	}

	// Credentials
	switch c.Credentials.Backend {
	case "file":
		if c.Credentials.Path == "" {
			return fmt.Errorf("credentials.path must not be empty when credentials.backend=file")
		}
	case "redis":
		if c.Credentials.RedisKey == "" {
			return fmt.Errorf("credentials.redis_key must not be empty when credentials.backend=redis")
		}
	case "memory":
	default:
		return fmt.Errorf("credentials.backend must be one of file, redis, memory")
	}

	// Live updates
	if c.Live.Enabled {
		if c.Live.Transport != "sse" && c.Live.Transport != "websocket" {
			return fmt.Errorf("live.transport must be sse or websocket")
		}
		if c.Live.Transport == "sse" && c.Live.Path == "" {
			return fmt.Errorf("live.path must not be empty")
		}
		if c.Live.Transport == "websocket" && c.Live.WebSocketPath == "" {
			return fmt.Errorf("live.websocket_path must not be empty")
		}
		if c.Live.InitialBackoff <= 0 {
			return fmt.Errorf("live.initial_backoff must be > 0")
		}
		if c.Live.MaxBackoff < c.Live.InitialBackoff {
			return fmt.Errorf("live.max_backoff must be >= live.initial_backoff")
		}
		if c.Live.BackoffMultiplier < 1 {
			return fmt.Errorf("live.backoff_multiplier must be >= 1")
		}
		if c.Live.MaxReconnectAttempts < 0 {
			return fmt.Errorf("live.max_reconnect_attempts must be >= 0")
		}
		if c.Live.ConnectionsPerMinute <= 0 {
			return fmt.Errorf("live.connections_per_minute must be > 0")
		}
		if c.Live.MaxMessageSizeBytes < 0 {
			return fmt.Errorf("live.max_message_size_bytes must be >= 0")
		}
	}

	// Bus
	if c.Bus.BridgeEnabled && c.Bus.Channel == "" {
		return fmt.Errorf("bus.channel must not be empty when bus.bridge_enabled=true")
	}
	if c.Bus.RelayFailureThreshold < 0 {
		return fmt.Errorf("bus.relay_failure_threshold must be >= 0")
	}
	if c.Bus.RelayFailureThreshold > 0 && c.Bus.RelayCooldown <= 0 {
		return fmt.Errorf("bus.relay_cooldown must be > 0 when relay_failure_threshold is set")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Redis
	if c.RedisRequired() {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis is used")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis is used")
		}
	}

	// Status server
	if c.Status.Enabled && c.Status.Address == "" {
		return fmt.Errorf("status.address must not be empty when status.enabled=true")
	}
	if c.Status.RequestsPerSecond < 0 {
		return fmt.Errorf("status.requests_per_second must be >= 0")
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.API.BaseURL = "http://localhost:5000/api"
	cfg.API.Timeout = 15 * time.Second
	cfg.API.UserAgent = "tasktracker-client"

	cfg.Credentials.Backend = "file"
	cfg.Credentials.Path = defaultCredentialPath()
	cfg.Credentials.RedisKey = "tasktracker:token"

	cfg.Live.Enabled = true
	cfg.Live.Transport = "sse"
	cfg.Live.Path = "/updates"
	cfg.Live.WebSocketPath = "/updates/ws"
	cfg.Live.InitialBackoff = 500 * time.Millisecond
	cfg.Live.MaxBackoff = 30 * time.Second
	cfg.Live.BackoffMultiplier = 2.0
	cfg.Live.MaxReconnectAttempts = 0
	cfg.Live.ConnectionsPerMinute = 30
	cfg.Live.PingInterval = 30 * time.Second
	cfg.Live.MaxMessageSizeBytes = 64 * 1024

	cfg.Bus.BridgeEnabled = false
	cfg.Bus.Channel = "tasktracker:updates"
	cfg.Bus.RelayFailureThreshold = 5
	cfg.Bus.RelayCooldown = 10 * time.Second

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "tasktracker-client"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Status.Enabled = false
	cfg.Status.Address = "127.0.0.1:9464"
	cfg.Status.RequestsPerSecond = 10
	cfg.Status.Burst = 20

	return cfg
}

func defaultCredentialPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".tasktracker/token"
	}
	return filepath.Join(dir, "tasktracker", "token")
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("TRACKER_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if level := os.Getenv("TRACKER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if path := os.Getenv("TRACKER_CREDENTIAL_PATH"); path != "" {
		c.Credentials.Path = path
	}
	if addr := os.Getenv("TRACKER_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
}
