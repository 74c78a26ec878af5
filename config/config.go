package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Supported storage backends
const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds the server settings, read from the environment
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"debug"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"redis"`

	RedisAddr      string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"8"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"roster.db"`

	// Add a few demo students when the roster is empty
	SeedDemo bool `env:"SEED_DEMO" envDefault:"false"`
}

// Load parses the environment into a Config
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.StoreDriver {
	case DriverRedis, DriverSQLite, DriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q (want redis, sqlite or memory)", cfg.StoreDriver)
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}
