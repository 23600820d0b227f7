// Package extension provides the Forge extension adapter for Heroes.
//
// It implements the forge.Extension interface to integrate the Heroes ledger
// into a Forge application with store selection, DI registration, and
// lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.heroes" or "heroes" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/heroes"
	"github.com/xraph/heroes/leaderboard"
	"github.com/xraph/heroes/observability"
	"github.com/xraph/heroes/store"
	"github.com/xraph/heroes/store/memory"
	"github.com/xraph/heroes/store/mongo"
	"github.com/xraph/heroes/store/postgres"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "heroes"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Device trade-in rewards ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the Heroes ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *heroes.Ledger
	store      store.Store
	board      *leaderboard.Leaderboard
	registerer prometheus.Registerer
	ledgerOpts []heroes.Option
}

// New creates a new Heroes Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Engine() *heroes.Ledger { return e.engine }

// Leaderboard returns the Redis mirror, or nil when it is not configured.
func (e *Extension) Leaderboard() *leaderboard.Leaderboard { return e.board }

// Register implements [forge.Extension]. It loads configuration, opens the
// store, initializes the ledger, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := e.openStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	if e.config.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: e.config.RedisAddr})
		e.board = leaderboard.New(client, leaderboard.WithKey(e.config.LeaderboardKey))
	}

	e.engine = heroes.New(e.store, e.buildLedgerOpts()...)

	if err := vessel.Provide(fapp.Container(), func() (*heroes.Ledger, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}
	if e.board != nil {
		return vessel.Provide(fapp.Container(), func() (*leaderboard.Leaderboard, error) {
			return e.board, nil
		})
	}
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("heroes: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	if e.board != nil {
		all, err := e.engine.GetAllHeroes(ctx)
		if err != nil {
			return err
		}
		if err := e.board.Rebuild(ctx, all); err != nil {
			e.Logger().Warn("heroes: leaderboard rebuild failed",
				forge.F("error", err.Error()),
			)
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	var errs []error
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.board != nil {
		if err := e.board.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.MarkStopped()
	return errors.Join(errs...)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("heroes: store not initialized")
	}
	return e.store.Ping(ctx)
}

// openStore builds the configured backend.
func (e *Extension) openStore() (store.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.config.ConnectTimeout)
	defer cancel()

	switch e.config.Store {
	case "", StoreMemory:
		return memory.New(), nil
	case StorePostgres:
		if e.config.PostgresDSN == "" {
			return nil, errors.New("heroes: postgres store requires postgres_dsn")
		}
		return postgres.Open(ctx, e.config.PostgresDSN)
	case StoreMongo:
		if e.config.MongoURI == "" {
			return nil, errors.New("heroes: mongo store requires mongo_uri")
		}
		return mongo.Open(ctx, e.config.MongoURI, e.config.MongoDatabase)
	default:
		return nil, fmt.Errorf("heroes: unknown store %q", e.config.Store)
	}
}

// buildLedgerOpts constructs heroes.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []heroes.Option {
	opts := make([]heroes.Option, 0, len(e.ledgerOpts)+4)

	if e.config.DisableMigrate {
		opts = append(opts, heroes.WithSkipMigrate())
	}
	if e.config.PluginTimeout > 0 {
		opts = append(opts, heroes.WithPluginTimeout(e.config.PluginTimeout))
	}
	if e.config.EnableMetrics {
		factory := observability.NewPrometheusFactory(e.registerer)
		opts = append(opts, heroes.WithPlugin(observability.NewMetricsExtension(factory)))
	}
	if e.board != nil {
		opts = append(opts, heroes.WithPlugin(e.board))
	}

	// Pass-through options last so callers can override.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("heroes: configuration is required but not found in config files; " +
				"ensure 'extensions.heroes' or 'heroes' key exists in your config")
		}
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("heroes: configuration loaded",
		forge.F("store", e.config.Store),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("leaderboard", e.config.RedisAddr != ""),
		forge.F("metrics", e.config.EnableMetrics),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.heroes", "heroes"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("heroes: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("heroes: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Store == "" {
		cfg.Store = defaults.Store
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = defaults.MongoDatabase
	}
	if cfg.LeaderboardKey == "" {
		cfg.LeaderboardKey = defaults.LeaderboardKey
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.EnableMetrics {
		yamlConfig.EnableMetrics = true
	}

	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&yamlConfig.Store, programmaticConfig.Store)
	fill(&yamlConfig.PostgresDSN, programmaticConfig.PostgresDSN)
	fill(&yamlConfig.MongoURI, programmaticConfig.MongoURI)
	fill(&yamlConfig.MongoDatabase, programmaticConfig.MongoDatabase)
	fill(&yamlConfig.RedisAddr, programmaticConfig.RedisAddr)
	fill(&yamlConfig.LeaderboardKey, programmaticConfig.LeaderboardKey)

	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}
	if yamlConfig.ConnectTimeout == 0 && programmaticConfig.ConnectTimeout != 0 {
		yamlConfig.ConnectTimeout = programmaticConfig.ConnectTimeout
	}

	return e.mergeWithDefaults(yamlConfig)
}
