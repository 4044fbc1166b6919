package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("overtime-test", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "./data/overtime.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Engine.AggregateConcurrency)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OVERTIME_SERVER_PORT", "9090")
	t.Setenv("OVERTIME_HOLIDAYS_REGION", "BY")
	t.Setenv("OVERTIME_ENGINE_AGGREGATE_CONCURRENCY", "8")

	cfg, err := loadConfig("overtime-test", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "BY", cfg.Holidays.Region)
	assert.Equal(t, 8, cfg.Engine.AggregateConcurrency)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 7070
database:
  path: /var/lib/overtime/ledger.db
holidays:
  region: NW
  feed_url: https://feiertage-api.de/api/
  feed_timeout: 3s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "overtime-test.yaml"), []byte(yaml), 0o600))

	cfg, err := loadConfig("overtime-test", dir)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/var/lib/overtime/ledger.db", cfg.Database.Path)
	assert.Equal(t, "NW", cfg.Holidays.Region)
	assert.Equal(t, "https://feiertage-api.de/api/", cfg.Holidays.FeedURL)
	assert.Equal(t, 3*time.Second, cfg.Holidays.FeedTimeout)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080, Environment: EnvDevelopment},
			Database: DatabaseConfig{Path: "./data/overtime.db"},
			Engine:   EngineConfig{AggregateConcurrency: 4},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"empty database path", func(c *Config) { c.Database.Path = "" }, true},
		{"zero concurrency", func(c *Config) { c.Engine.AggregateConcurrency = 0 }, true},
		{"memory db in development", func(c *Config) { c.Database.Path = ":memory:" }, false},
		{"memory db in production", func(c *Config) {
			c.Database.Path = ":memory:"
			c.Server.Environment = EnvProduction
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
