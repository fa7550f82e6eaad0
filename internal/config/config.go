// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvDevelopment enables verbose error details in responses.
const EnvDevelopment = "development"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Upstream    UpstreamConfig `mapstructure:"upstream"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Logging     LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// UpstreamConfig describes the scraped site and how it is fetched.
type UpstreamConfig struct {
	Origin       string          `mapstructure:"origin"`
	AllowedHosts []string        `mapstructure:"allowed_hosts"`
	UserAgent    string          `mapstructure:"user_agent"`
	Timeout      time.Duration   `mapstructure:"timeout"`
	RetryDelay   time.Duration   `mapstructure:"retry_delay"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-host pacing of upstream fetches.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// CacheConfig bounds the in-memory response cache.
type CacheConfig struct {
	MaxEntries    int           `mapstructure:"max_entries"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Development reports whether the service runs in the development environment.
func (c Config) Development() bool {
	return strings.EqualFold(c.Environment, EnvDevelopment)
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EXPLORER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Conventional platform variables.
	if err := v.BindEnv("server.port", "EXPLORER_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("server.allowed_origins", "EXPLORER_SERVER_ALLOWED_ORIGINS", "CORS_ORIGINS"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.Upstream.AllowedHosts = splitList(cfg.Upstream.AllowedHosts)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("upstream.origin", "https://www.wob.com")
	v.SetDefault("upstream.allowed_hosts", []string{"www.wob.com", "wob.com"})
	v.SetDefault("upstream.user_agent", "")
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("upstream.retry_delay", time.Second)
	v.SetDefault("upstream.rate_limit.enabled", false)
	v.SetDefault("upstream.rate_limit.rps", 2.0)
	v.SetDefault("upstream.rate_limit.burst", 4)
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.default_ttl", 5*time.Minute)
	v.SetDefault("cache.sweep_interval", time.Minute)
	v.SetDefault("logging.development", true)
}

// splitList trims entries and expands comma-separated values from env vars.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if u, err := url.Parse(c.Upstream.Origin); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.origin must be an absolute url")
	}
	if len(c.Upstream.AllowedHosts) == 0 {
		return fmt.Errorf("upstream.allowed_hosts must not be empty")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be > 0")
	}
	if c.Upstream.RetryDelay < 0 {
		return fmt.Errorf("upstream.retry_delay must be >= 0")
	}
	if c.Upstream.RateLimit.Enabled && c.Upstream.RateLimit.RPS <= 0 {
		return fmt.Errorf("upstream.rate_limit.rps must be > 0 when rate limiting is enabled")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be > 0")
	}
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("cache.default_ttl must be > 0")
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache.sweep_interval must be > 0")
	}
	return nil
}
