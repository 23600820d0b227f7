package extension

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/heroes"
	"github.com/xraph/heroes/plugin"
	"github.com/xraph/heroes/store"
)

// Option configures the Heroes Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine. It takes precedence over
// the configured backend.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a heroes.Option through to the underlying engine.
func WithLedgerOption(opt heroes.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, heroes.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithPostgres selects the postgres backend.
func WithPostgres(dsn string) Option {
	return func(e *Extension) {
		e.config.Store = StorePostgres
		e.config.PostgresDSN = dsn
	}
}

// WithMongo selects the mongo backend.
func WithMongo(uri, database string) Option {
	return func(e *Extension) {
		e.config.Store = StoreMongo
		e.config.MongoURI = uri
		e.config.MongoDatabase = database
	}
}

// WithRedisLeaderboard mirrors hero points into a Redis sorted set.
func WithRedisLeaderboard(addr string) Option {
	return func(e *Extension) { e.config.RedisAddr = addr }
}

// WithMetrics registers the Prometheus metrics plugin.
func WithMetrics() Option {
	return func(e *Extension) { e.config.EnableMetrics = true }
}

// WithPluginTimeout bounds each plugin call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithRegisterer sets the Prometheus registerer used when metrics are
// enabled. Defaults to prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Extension) {
		e.registerer = reg
		e.config.EnableMetrics = true
	}
}
