// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Plugins  PluginsConfig  `yaml:"plugins"`
	Bus      BusConfig      `yaml:"bus"`
	Registry RegistryConfig `yaml:"registry"`
	Modules  ModulesConfig  `yaml:"modules"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the control API HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PluginsConfig configures native plugin loading.
type PluginsConfig struct {
	// Dirs are extra plugin directories scanned in addition to the
	// built-in ./plugins and per-user directories.
	Dirs []string `yaml:"dirs"`
	// Watch enables hot reload of plugin files.
	Watch bool `yaml:"watch"`
	// RequireSignature refuses to load plugins that fail signature
	// verification. With it off, verification results are recorded in
	// the registry but never block loading.
	RequireSignature bool `yaml:"require_signature"`
	// TrustedKeysFile is the path to the trusted public key list.
	// Empty means ~/.patchbay/trusted_keys.txt.
	TrustedKeysFile string `yaml:"trusted_keys_file"`
	// Sandbox applies the syscall filter before any plugin code runs.
	Sandbox bool `yaml:"sandbox"`
}

// BusConfig configures the signal router.
type BusConfig struct {
	// RouterBuffer is the shared router channel capacity.
	RouterBuffer int `yaml:"router_buffer"`
	// InboxBuffer is the per-module inbox capacity.
	InboxBuffer int `yaml:"inbox_buffer"`
}

// RegistryConfig configures plugin registry persistence.
// Use "sqlite" for durable storage or "memory" for ephemeral runs.
type RegistryConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	DSN    string `yaml:"dsn"`
}

// ModulesConfig configures the built-in modules started at boot.
type ModulesConfig struct {
	Pulse PulseConfig `yaml:"pulse"`
}

// PulseConfig configures the built-in pulse source.
type PulseConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file, applies environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

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

// Default returns the configuration used when no config file exists:
// environment overrides on top of built-in defaults.
func Default() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads from the file when it exists and falls back
// to defaults plus environment variables otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default()
}

// HasEnvConfig reports whether the process carries enough PATCHBAY_*
// environment to run without a config file.
func HasEnvConfig() bool {
	return os.Getenv("PATCHBAY_PLUGIN_DIRS") != ""
}

// applyEnvOverrides applies PATCHBAY_* environment variables.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PATCHBAY_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PATCHBAY_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("PATCHBAY_PLUGIN_DIRS"); v != "" {
		cfg.Plugins.Dirs = filepath.SplitList(v)
	}
	if v := os.Getenv("PATCHBAY_PLUGIN_WATCH"); v != "" {
		cfg.Plugins.Watch = parseBool(v)
	}
	if v := os.Getenv("PATCHBAY_PLUGIN_REQUIRE_SIGNATURE"); v != "" {
		cfg.Plugins.RequireSignature = parseBool(v)
	}
	if v := os.Getenv("PATCHBAY_PLUGIN_TRUSTED_KEYS"); v != "" {
		cfg.Plugins.TrustedKeysFile = v
	}
	if v := os.Getenv("PATCHBAY_PLUGIN_SANDBOX"); v != "" {
		cfg.Plugins.Sandbox = parseBool(v)
	}

	if v := os.Getenv("PATCHBAY_BUS_ROUTER_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bus.RouterBuffer = n
		}
	}
	if v := os.Getenv("PATCHBAY_BUS_INBOX_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bus.InboxBuffer = n
		}
	}

	if v := os.Getenv("PATCHBAY_REGISTRY_DRIVER"); v != "" {
		cfg.Registry.Driver = v
	}
	if v := os.Getenv("PATCHBAY_REGISTRY_DSN"); v != "" {
		cfg.Registry.DSN = v
	}

	if v := os.Getenv("PATCHBAY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PATCHBAY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("PATCHBAY_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("PATCHBAY_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7400
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Plugins.TrustedKeysFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Plugins.TrustedKeysFile = filepath.Join(home, ".patchbay", "trusted_keys.txt")
		}
	}

	if cfg.Bus.RouterBuffer == 0 {
		cfg.Bus.RouterBuffer = 256
	}
	if cfg.Bus.InboxBuffer == 0 {
		cfg.Bus.InboxBuffer = 64
	}

	if cfg.Registry.Driver == "" {
		cfg.Registry.Driver = "sqlite"
	}
	if cfg.Registry.DSN == "" {
		cfg.Registry.DSN = "patchbay.db"
	}

	if cfg.Modules.Pulse.Interval == 0 {
		cfg.Modules.Pulse.Interval = time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	validDrivers := map[string]bool{"sqlite": true, "memory": true}
	if !validDrivers[cfg.Registry.Driver] {
		return fmt.Errorf("registry.driver must be 'sqlite' or 'memory', got %q", cfg.Registry.Driver)
	}
	if cfg.Registry.Driver == "sqlite" && cfg.Registry.DSN == "" {
		return fmt.Errorf("registry.dsn is required when registry.driver is 'sqlite'")
	}

	if cfg.Plugins.RequireSignature && cfg.Plugins.TrustedKeysFile == "" {
		return fmt.Errorf("plugins.trusted_keys_file is required when plugins.require_signature is set")
	}

	if cfg.Bus.RouterBuffer < 1 {
		return fmt.Errorf("bus.router_buffer must be positive, got %d", cfg.Bus.RouterBuffer)
	}
	if cfg.Bus.InboxBuffer < 1 {
		return fmt.Errorf("bus.inbox_buffer must be positive, got %d", cfg.Bus.InboxBuffer)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %q", cfg.Logging.Level)
	}

	return nil
}
