package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config holds all configuration for the overtime services
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Holidays HolidaysConfig
	Log      LogConfig
	Engine   EngineConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig points at the SQLite file shared by the ledger and the
// employee directory.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// HolidaysConfig configures the public holiday feed. An empty FeedURL
// disables fetching; only stored holidays are used.
type HolidaysConfig struct {
	Region      string        `mapstructure:"region"`
	FeedURL     string        `mapstructure:"feed_url"`
	FeedTimeout time.Duration `mapstructure:"feed_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type EngineConfig struct {
	AggregateConcurrency int `mapstructure:"aggregate_concurrency"`
}

// Load reads .env (if present), defaults, OVERTIME_* environment variables
// and an optional config/<serviceName>.yaml, then validates the result.
func Load(serviceName string) (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := loadConfig(serviceName, "./config", "/etc/overtime")
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadConfig(serviceName string, paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("OVERTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(serviceName)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.environment", EnvDevelopment)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.path", "./data/overtime.db")

	v.SetDefault("holidays.region", "")
	v.SetDefault("holidays.feed_url", "")
	v.SetDefault("holidays.feed_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")

	v.SetDefault("engine.aggregate_concurrency", 4)
}

// Validate checks the values the services cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Engine.AggregateConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("engine.aggregate_concurrency must be positive, got %d", c.Engine.AggregateConcurrency))
	}
	if c.Server.Environment == EnvProduction && c.Database.Path == ":memory:" {
		errs = append(errs, errors.New("in-memory database not allowed in production"))
	}
	return errors.Join(errs...)
}
