// Package config loads service configuration: defaults, then an optional
// YAML file, then INSIGHT_-prefixed environment variables, each layer
// overriding the previous.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/disha-labs/insight/pkg/logging"
)

// EnvPrefix namespaces the environment variable overrides. Double
// underscore separates nesting levels so single underscores survive in
// key names: INSIGHT_SERVER__PORT maps to server.port,
// INSIGHT_STORAGE__MAX_MEMORY_MB to storage.max_memory_mb.
const EnvPrefix = "INSIGHT_"

// DefaultConfigPaths lists where the config file is searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/insight/config.yaml",
}

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Retention RetentionConfig `koanf:"retention"`
	Logging   logging.Config  `koanf:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// StorageConfig selects and configures the record store backend.
type StorageConfig struct {
	// Backend is "partition" (day files) or "badger" (embedded KV).
	Backend string `koanf:"backend"`

	// Dir is the data directory for either backend.
	Dir string `koanf:"dir"`

	// MaxMemoryMB bounds BadgerDB memory when the badger backend is used.
	MaxMemoryMB int64 `koanf:"max_memory_mb"`
}

// RetentionConfig configures the periodic cleanup job.
type RetentionConfig struct {
	// Days is the retention window; records older than this are purged.
	Days int `koanf:"days"`

	// Interval is how often the cleanup job runs.
	Interval time.Duration `koanf:"interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Backend: "partition",
			Dir:     "./data/analytics",
		},
		Retention: RetentionConfig{
			Days:     365,
			Interval: 24 * time.Hour,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file
// (path argument, else the first DefaultConfigPaths hit), and environment
// overrides.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	defaults := Default()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		for _, p := range DefaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := defaults
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Storage.Backend != "partition" && c.Storage.Backend != "badger" {
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage dir must be set")
	}
	if c.Retention.Days <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", c.Retention.Days)
	}
	if c.Retention.Interval <= 0 {
		return fmt.Errorf("retention interval must be positive, got %v", c.Retention.Interval)
	}
	return nil
}
