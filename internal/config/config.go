// Package config loads chartkeep settings from defaults, an optional config
// file and CHARTKEEP_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// EnvPrefix prefixes every environment variable, e.g. CHARTKEEP_BACKEND.
const EnvPrefix = "CHARTKEEP"

// ErrInvalid marks a configuration that loaded but cannot be used.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Backend       string        `mapstructure:"backend"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
	AutosaveQuiet time.Duration `mapstructure:"autosave_quiet"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`
	ActorID       string        `mapstructure:"actor_id"`
	ActorLabel    string        `mapstructure:"actor_label"`
}

var defaults = map[string]any{
	"backend":        BackendSQLite,
	"sqlite_path":    "chartkeep.db",
	"redis_addr":     "localhost:6379",
	"redis_password": "",
	"redis_db":       0,
	"redis_prefix":   "chartkeep:",
	"autosave_quiet": "400ms",
	"log_level":      "info",
	"log_format":     "json",
	"actor_id":       "",
	"actor_label":    "",
}

// Load reads configuration. An empty path skips the config file; a named
// file that cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	for key, value := range defaults {
		v.SetDefault(key, value)
		// Bind explicitly so Unmarshal picks up env-only values.
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration names a usable backend and a
// positive autosave quiet period.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite backend", ErrInvalid)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: backend must be %q, %q, or %q, got %q",
			ErrInvalid, BackendMemory, BackendSQLite, BackendRedis, c.Backend)
	}

	if c.AutosaveQuiet <= 0 {
		return fmt.Errorf("%w: autosave_quiet must be positive, got %s", ErrInvalid, c.AutosaveQuiet)
	}
	return nil
}
