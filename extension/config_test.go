package extension

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/heroes"
	"github.com/xraph/heroes/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	e := New()
	cfg := e.mergeWithDefaults(Config{})

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "heroes", cfg.MongoDatabase)
	assert.Equal(t, "heroes:leaderboard", cfg.LeaderboardKey)
	assert.Equal(t, 5*time.Second, cfg.PluginTimeout)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
}

func TestMergeConfigurations(t *testing.T) {
	e := New()

	yaml := Config{Store: StorePostgres, PostgresDSN: "postgres://file", PluginTimeout: time.Second}
	prog := Config{
		Store:          StoreMongo,
		PostgresDSN:    "postgres://code",
		RedisAddr:      "localhost:6379",
		DisableMigrate: true,
		PluginTimeout:  time.Minute,
	}

	cfg := e.mergeConfigurations(yaml, prog)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://file", cfg.PostgresDSN)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.DisableMigrate)
	assert.Equal(t, time.Second, cfg.PluginTimeout)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
}

func TestOptions(t *testing.T) {
	e := New(
		WithPostgres("postgres://localhost/heroes"),
		WithDisableMigrate(),
		WithPluginTimeout(2*time.Second),
		WithRedisLeaderboard("localhost:6379"),
		WithRequireConfig(true),
	)
	assert.Equal(t, StorePostgres, e.config.Store)
	assert.Equal(t, "postgres://localhost/heroes", e.config.PostgresDSN)
	assert.True(t, e.config.DisableMigrate)
	assert.True(t, e.config.RequireConfig)
	assert.Equal(t, 2*time.Second, e.config.PluginTimeout)
	assert.Equal(t, "localhost:6379", e.config.RedisAddr)

	e = New(WithMongo("mongodb://localhost", "rewards"))
	assert.Equal(t, StoreMongo, e.config.Store)
	assert.Equal(t, "rewards", e.config.MongoDatabase)
}

func TestOpenStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default memory", Config{}, false},
		{"explicit memory", Config{Store: StoreMemory}, false},
		{"postgres without dsn", Config{Store: StorePostgres}, true},
		{"mongo without uri", Config{Store: StoreMongo}, true},
		{"unknown", Config{Store: "cassandra"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(WithConfig(tt.cfg))
			e.config = e.mergeWithDefaults(e.config)
			s, err := e.openStore()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &memory.Store{}, s)
		})
	}
}

func TestBuildLedgerOpts(t *testing.T) {
	e := New(WithRegisterer(prometheus.NewRegistry()))
	e.config = e.mergeWithDefaults(e.config)

	// plugin timeout + metrics plugin
	assert.Len(t, e.buildLedgerOpts(), 2)

	e = New(WithStore(memory.New()))
	assert.Empty(t, e.buildLedgerOpts())
}

func TestDisableMigrateStillStartsLedger(t *testing.T) {
	e := New(WithStore(memory.New()), WithDisableMigrate())
	opts := e.buildLedgerOpts()
	require.Len(t, opts, 1)

	l := heroes.New(e.store, opts...)
	require.NoError(t, l.Start(context.Background()))
	defer func() { _ = l.Stop() }()

	ps, err := l.GetImpactStats(context.Background())
	require.NoError(t, err, "aggregate is seeded without migrating")
	assert.Zero(t, ps.ActiveHeroes)
}
