package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/heroes"
	"github.com/xraph/heroes/stats"
	"github.com/xraph/heroes/store/memory"
)

func memoryConfig() *Config {
	return &Config{
		Store:             "memory",
		ReconcileSchedule: "@every 1h",
		PluginTimeout:     time.Second,
		ConnectTimeout:    time.Second,
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("HEROES_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/heroes?sslmode=disable")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("HEROES_PLUGIN_TIMEOUT", "250ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.PluginTimeout)
	assert.Equal(t, "heroes", cfg.MongoDatabase)
	assert.Equal(t, "heroes:leaderboard", cfg.LeaderboardKey)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Store: "memory"}, false},
		{"postgres with url", Config{Store: "postgres", DatabaseURL: "postgres://x"}, false},
		{"postgres without url", Config{Store: "postgres"}, true},
		{"mongo without uri", Config{Store: "mongo"}, true},
		{"unknown", Config{Store: "sqlite"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunQuote(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"quote", "iPhone 13", "good"}, memoryConfig(), zerolog.Nop(), &out)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "765")
	assert.Contains(t, s, "$765.00")
	assert.Contains(t, s, "1530")
	assert.Contains(t, s, "Bronze Hero")
	assert.NotContains(t, s, "unlisted")
}

func TestRunQuoteUnknownModel(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"quote", "Nokia 3310", "mint"}, memoryConfig(), zerolog.Nop(), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "unlisted")
	assert.Contains(t, out.String(), "unrecognized")
}

func TestRunUsage(t *testing.T) {
	tests := [][]string{
		nil,
		{"quote", "iPhone 13"},
		{"launch"},
		{"top", "-x"},
	}
	for _, args := range tests {
		err := run(context.Background(), args, memoryConfig(), zerolog.Nop(), &bytes.Buffer{})
		assert.True(t, errors.Is(err, errUsage), "args %v: %v", args, err)
	}
}

func TestRunSeedAndTop(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"seed", "-n", "4"}, memoryConfig(), zerolog.Nop(), &out))
	assert.Contains(t, out.String(), "registered 4 heroes")

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"top", "-n", "3"}, memoryConfig(), zerolog.Nop(), &out))
	assert.Contains(t, out.String(), "POINTS")
}

func TestSeedUpdatesStats(t *testing.T) {
	ctx := context.Background()
	l := heroes.New(memory.New())
	require.NoError(t, l.Start(ctx))

	created, err := seed(ctx, l, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, created)

	ps, err := l.GetImpactStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), ps.ActiveHeroes)
	assert.Positive(t, ps.TotalBottlesPrevented)

	var out bytes.Buffer
	require.NoError(t, writeStats(&out, ps))
	assert.Contains(t, out.String(), "active heroes")

	out.Reset()
	require.NoError(t, writeStats(&out, &stats.ProgramStats{TotalRewards: 1285, ActiveHeroes: 2}))
	assert.Contains(t, out.String(), "1285 ($1285.00)")
}

func TestRunReconcile(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"reconcile"}, memoryConfig(), zerolog.Nop(), &out))
	assert.Contains(t, out.String(), "before:")
	assert.Contains(t, out.String(), "after:")
}

func TestServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"serve"}, memoryConfig(), zerolog.Nop(), &bytes.Buffer{})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServeRejectsBadSchedule(t *testing.T) {
	cfg := memoryConfig()
	cfg.ReconcileSchedule = "every now and then"
	err := run(context.Background(), []string{"serve"}, cfg, zerolog.Nop(), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf).Level(zerolog.InfoLevel)
	logger := newSlogLogger(zl)

	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.With("component", "ledger").
		WithGroup("plugin").
		Warn("plugin failed", "name", "audit", "attempt", 2, slog.Group("timing", "slow", true))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "plugin failed", line["message"])
	assert.Equal(t, "ledger", line["component"])
	assert.Equal(t, "audit", line["plugin.name"])
	assert.InDelta(t, 2, line["plugin.attempt"], 0)
	assert.Equal(t, true, line["plugin.timing.slow"])
}

func TestZerologLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, zerologLevel(slog.LevelDebug))
	assert.Equal(t, zerolog.InfoLevel, zerologLevel(slog.LevelInfo))
	assert.Equal(t, zerolog.WarnLevel, zerologLevel(slog.LevelWarn))
	assert.Equal(t, zerolog.ErrorLevel, zerologLevel(slog.LevelError+2))
}
