package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "chartkeep.db", cfg.SQLitePath)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, "chartkeep:", cfg.RedisPrefix)
	assert.Equal(t, 400*time.Millisecond, cfg.AutosaveQuiet)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.ActorID)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("CHARTKEEP_BACKEND", "Redis")
	t.Setenv("CHARTKEEP_REDIS_ADDR", "cache:6380")
	t.Setenv("CHARTKEEP_REDIS_DB", "3")
	t.Setenv("CHARTKEEP_AUTOSAVE_QUIET", "1s")
	t.Setenv("CHARTKEEP_ACTOR_ID", "dr1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, time.Second, cfg.AutosaveQuiet)
	assert.Equal(t, "dr1", cfg.ActorID)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chartkeep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"backend: memory\nlog_format: console\nactor_label: Dr. Hopper\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "Dr. Hopper", cfg.ActorLabel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chartkeep.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))
	t.Setenv("CHARTKEEP_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("CHARTKEEP_BACKEND", "postgres")

	_, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "postgres")
}

func TestValidate(t *testing.T) {
	valid := Config{Backend: BackendSQLite, SQLitePath: "x.db", AutosaveQuiet: time.Second}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero quiet", func(c *Config) { c.AutosaveQuiet = 0 }},
		{"negative quiet", func(c *Config) { c.AutosaveQuiet = -time.Second }},
		{"sqlite without path", func(c *Config) { c.SQLitePath = "" }},
		{"redis without addr", func(c *Config) { c.Backend = BackendRedis }},
		{"empty backend", func(c *Config) { c.Backend = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}
