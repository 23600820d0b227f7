package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/xraph/heroes"
	audithook "github.com/xraph/heroes/audit_hook"
	"github.com/xraph/heroes/leaderboard"
	"github.com/xraph/heroes/observability"
	"github.com/xraph/heroes/store"
	"github.com/xraph/heroes/store/memory"
	"github.com/xraph/heroes/store/mongo"
	"github.com/xraph/heroes/store/postgres"
)

// app is a started ledger with its optional side channels.
type app struct {
	ledger   *heroes.Ledger
	board    *leaderboard.Leaderboard
	registry *prometheus.Registry
	log      zerolog.Logger
}

func newApp(ctx context.Context, cfg *Config, zl zerolog.Logger) (*app, error) {
	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{log: zl}
	slogger := newSlogLogger(zl)
	opts := []heroes.Option{
		heroes.WithLogger(slogger),
		heroes.WithPluginTimeout(cfg.PluginTimeout),
		heroes.WithPlugin(audithook.New(auditRecorder(zl), audithook.WithLogger(slogger))),
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.board = leaderboard.New(client,
			leaderboard.WithKey(cfg.LeaderboardKey),
			leaderboard.WithLogger(slogger),
		)
		opts = append(opts, heroes.WithPlugin(a.board))
	}

	if cfg.MetricsAddr != "" {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		factory := observability.NewPrometheusFactory(a.registry)
		opts = append(opts, heroes.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	a.ledger = heroes.New(s, opts...)
	if err := a.ledger.Start(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Close stops the ledger and releases every client.
func (a *app) Close() error {
	var errs []error
	if a.ledger != nil {
		errs = append(errs, a.ledger.Stop())
	}
	if a.board != nil {
		errs = append(errs, a.board.Close())
	}
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg *Config) (store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	switch cfg.Store {
	case "", "memory":
		return memory.New(), nil
	case "postgres":
		return postgres.Open(ctx, cfg.DatabaseURL)
	case "mongo":
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// auditRecorder writes the audit trail to the log.
func auditRecorder(zl zerolog.Logger) audithook.Recorder {
	return audithook.RecorderFunc(func(_ context.Context, ev *audithook.AuditEvent) error {
		zl.Info().
			Str("action", ev.Action).
			Str("resource", ev.Resource).
			Str("resource_id", ev.ResourceID).
			Str("outcome", ev.Outcome).
			Fields(ev.Metadata).
			Msg("audit")
		return nil
	})
}
