package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	// HMACSecret is shared with the external identity provider; this service
	// only verifies tokens, it never issues them.
	HMACSecret string `yaml:"hmac_secret"`
}

type ProviderConfig struct {
	Name    string `yaml:"name"` // openai|gemini|noop
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type GenerationConfig struct {
	// Providers are tried in order; each gets MaxRetries attempts with
	// RetryBackoff between them before the next provider is tried.
	Providers    []ProviderConfig `yaml:"providers"`
	MaxRetries   int              `yaml:"max_retries"`
	RetryBackoff time.Duration    `yaml:"retry_backoff"`
	Timeout      time.Duration    `yaml:"timeout"` // per generation call
}

type JobsConfig struct {
	Workers         int           `yaml:"workers"`          // concurrent section tasks across all jobs
	WatchdogTimeout time.Duration `yaml:"watchdog_timeout"` // max silence for a generating section
	RunningTTL      time.Duration `yaml:"running_ttl"`      // snapshot TTL while the job runs
	RetentionTTL    time.Duration `yaml:"retention_ttl"`    // snapshot TTL after a terminal state
}

type QuotaConfig struct {
	// Roles maps a role name to per-section daily limits; -1 means unlimited.
	Roles map[string]map[string]int `yaml:"roles"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Generation GenerationConfig `yaml:"generation"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Quota      QuotaConfig      `yaml:"quota"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Jobs.Workers <= 0 {
		cfg.Jobs.Workers = 16
	}
	if cfg.Jobs.WatchdogTimeout <= 0 {
		cfg.Jobs.WatchdogTimeout = 3 * time.Minute
	}
	if cfg.Jobs.RunningTTL <= 0 {
		cfg.Jobs.RunningTTL = time.Hour
	}
	if cfg.Jobs.RetentionTTL <= 0 {
		cfg.Jobs.RetentionTTL = 15 * time.Minute
	}
	if cfg.Generation.MaxRetries <= 0 {
		cfg.Generation.MaxRetries = 2
	}
	if cfg.Generation.RetryBackoff <= 0 {
		cfg.Generation.RetryBackoff = 2 * time.Second
	}
	if cfg.Generation.Timeout <= 0 {
		cfg.Generation.Timeout = 2 * time.Minute
	}
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = 10
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.HMACSecret == "" && !dev {
		return nil, errors.New("auth.hmac_secret is required outside dev mode")
	}
	if len(cfg.Generation.Providers) == 0 {
		return nil, errors.New("generation.providers must list at least one provider")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
