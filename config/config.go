// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Resolver ResolverConfig `yaml:"resolver"`
	Registry RegistryConfig `yaml:"registry"`
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ResolverConfig configures the manifest resolver.
type ResolverConfig struct {
	// BaseDir anchors relative manifest locators.
	BaseDir string `yaml:"base_dir"`

	// CacheMaxAge bounds how long a resolved manifest is served from
	// cache. Zero disables expiry.
	CacheMaxAge time.Duration `yaml:"cache_max_age"`

	// MaxDepth bounds structure depth and reference chain length.
	MaxDepth int `yaml:"max_depth"`

	// HTTPTimeout bounds remote manifest fetches.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// RegistryConfig configures the optional sqlite manifest registry.
type RegistryConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

// WatchConfig configures cache invalidation on manifest file changes.
// Watching is on unless explicitly disabled.
type WatchConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// IsEnabled reports whether watching is on.
func (w WatchConfig) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// Useful for container deployments where no config file is mounted.
//
// Environment variables:
//
//	SPINDLE_SERVER_HOST      - Server host (default: 0.0.0.0)
//	SPINDLE_SERVER_PORT      - Server port (default: 3009)
//	SPINDLE_BASE_DIR         - Manifest base directory (default: .)
//	SPINDLE_CACHE_MAX_AGE    - Cache entry max age (default: 5m)
//	SPINDLE_MAX_DEPTH        - Structure/reference depth bound (default: 32)
//	SPINDLE_REGISTRY_DSN     - Optional sqlite registry path
//	SPINDLE_WATCH_ENABLED    - Invalidate cache on file changes (default: true)
//	SPINDLE_LOG_LEVEL        - Log level: debug, info, warn, error (default: info)
//	SPINDLE_LOG_FORMAT       - Log format: json or console (default: json)
//	SPINDLE_METRICS_ENABLED  - Enable /metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables and defaults.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies SPINDLE_* environment variables.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SPINDLE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SPINDLE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SPINDLE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("SPINDLE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("SPINDLE_BASE_DIR"); v != "" {
		cfg.Resolver.BaseDir = v
	}
	if v := os.Getenv("SPINDLE_CACHE_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Resolver.CacheMaxAge = d
		}
	}
	if v := os.Getenv("SPINDLE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Resolver.MaxDepth = n
		}
	}
	if v := os.Getenv("SPINDLE_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Resolver.HTTPTimeout = d
		}
	}

	if v := os.Getenv("SPINDLE_REGISTRY_DSN"); v != "" {
		cfg.Registry.DSN = v
	}
	if v := os.Getenv("SPINDLE_WATCH_ENABLED"); v != "" {
		enabled := parseBool(v)
		cfg.Watch.Enabled = &enabled
	}

	if v := os.Getenv("SPINDLE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SPINDLE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("SPINDLE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3009
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Resolver.BaseDir == "" {
		cfg.Resolver.BaseDir = "."
	}
	if cfg.Resolver.CacheMaxAge == 0 {
		cfg.Resolver.CacheMaxAge = 5 * time.Minute
	}
	if cfg.Resolver.MaxDepth == 0 {
		cfg.Resolver.MaxDepth = 32
	}
	if cfg.Resolver.HTTPTimeout == 0 {
		cfg.Resolver.HTTPTimeout = 15 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", cfg.Server.Port)
	}

	if cfg.Resolver.MaxDepth < 1 {
		return fmt.Errorf("resolver.max_depth must be positive, got %d", cfg.Resolver.MaxDepth)
	}
	if cfg.Resolver.CacheMaxAge < 0 {
		return fmt.Errorf("resolver.cache_max_age must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}
	return nil
}
