package extension

import "time"

// Store backends selectable from configuration.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config holds the Heroes extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.heroes" or "heroes" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Store selects the backend when no store is supplied with WithStore:
	// "memory" (default), "postgres" or "mongo".
	Store string `json:"store" mapstructure:"store" yaml:"store"`

	// PostgresDSN is the connection string used by the postgres backend.
	PostgresDSN string `json:"postgres_dsn" mapstructure:"postgres_dsn" yaml:"postgres_dsn"`

	// MongoURI and MongoDatabase configure the mongo backend.
	MongoURI      string `json:"mongo_uri" mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `json:"mongo_database" mapstructure:"mongo_database" yaml:"mongo_database"`

	// RedisAddr enables the Redis leaderboard mirror when set.
	RedisAddr string `json:"redis_addr" mapstructure:"redis_addr" yaml:"redis_addr"`

	// LeaderboardKey is the sorted-set key of the leaderboard mirror
	// (default: "heroes:leaderboard").
	LeaderboardKey string `json:"leaderboard_key" mapstructure:"leaderboard_key" yaml:"leaderboard_key"`

	// EnableMetrics registers the Prometheus metrics plugin.
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics" yaml:"enable_metrics"`

	// PluginTimeout bounds each plugin call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// ConnectTimeout bounds opening a durable store (default: 10s).
	ConnectTimeout time.Duration `json:"connect_timeout" mapstructure:"connect_timeout" yaml:"connect_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store:          StoreMemory,
		MongoDatabase:  "heroes",
		LeaderboardKey: "heroes:leaderboard",
		PluginTimeout:  5 * time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}
