package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is read from the environment, optionally seeded from a .env file.
type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	// Store is one of memory, postgres or mongo.
	Store         string `env:"HEROES_STORE" envDefault:"memory"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"heroes"`

	// RedisAddr enables the leaderboard mirror.
	RedisAddr      string `env:"REDIS_ADDR"`
	LeaderboardKey string `env:"LEADERBOARD_KEY" envDefault:"heroes:leaderboard"`

	// MetricsAddr serves /metrics when set, e.g. ":9102".
	MetricsAddr string `env:"METRICS_ADDR"`

	ReconcileSchedule string        `env:"RECONCILE_SCHEDULE" envDefault:"@every 1h"`
	PluginTimeout     time.Duration `env:"HEROES_PLUGIN_TIMEOUT" envDefault:"5s"`
	ConnectTimeout    time.Duration `env:"HEROES_CONNECT_TIMEOUT" envDefault:"10s"`
}

// LoadConfig loads .env if present, then parses the environment.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("HEROES_STORE=postgres requires DATABASE_URL")
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("HEROES_STORE=mongo requires MONGO_URI")
		}
	default:
		return fmt.Errorf("unknown HEROES_STORE %q", c.Store)
	}
	return nil
}
