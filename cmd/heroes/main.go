// Command heroes is the operator CLI for the trade-in rewards ledger.
//
//	heroes quote <model> <condition>   price a device
//	heroes seed [-n N]                 register demo heroes
//	heroes stats                       print program totals
//	heroes reconcile                   recompute totals from hero records
//	heroes top [-n N]                  print the points leaderboard
//	heroes serve                       run scheduled reconciliation
//
// Configuration comes from the environment (see Config).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/xraph/heroes"
	"github.com/xraph/heroes/valuation"
)

var errUsage = errors.New("usage: heroes <quote|seed|stats|reconcile|top|serve> [flags]")

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "heroes:", err)
		os.Exit(2)
	}
	zl := newLogger(cfg.Debug, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, os.Args[1:], cfg, zl, os.Stdout)
	stop()
	if err != nil {
		zl.Error().Err(err).Msg("command failed")
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, cfg *Config, zl zerolog.Logger, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	if cmd == "quote" {
		if len(rest) != 2 {
			return fmt.Errorf("%w: quote <model> <condition>", errUsage)
		}
		return writeQuote(out, valuation.NewQuote(rest[0], rest[1]))
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	n := fs.Int("n", 10, "number of heroes")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	switch cmd {
	case "seed", "stats", "reconcile", "top", "serve":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	a, err := newApp(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			zl.Warn().Err(cerr).Msg("shutdown")
		}
	}()

	switch cmd {
	case "seed":
		created, err := seed(ctx, a.ledger, *n)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "registered %d heroes\n", created)
		return nil
	case "stats":
		ps, err := a.ledger.GetImpactStats(ctx)
		if err != nil {
			return err
		}
		return writeStats(out, ps)
	case "reconcile":
		return reconcile(ctx, a, out)
	case "top":
		return top(ctx, a, *n, out)
	default:
		return serve(ctx, a, cfg)
	}
}

// seed registers n demo heroes cycling through the priced models.
func seed(ctx context.Context, l *heroes.Ledger, n int) (int, error) {
	models := valuation.Models()
	conditions := []valuation.Condition{
		valuation.ConditionExcellent,
		valuation.ConditionGood,
		valuation.ConditionFair,
		valuation.ConditionPoor,
	}
	for i := range n {
		_, err := l.RegisterHero(ctx, heroes.RegisterInput{
			Email:           fmt.Sprintf("hero%03d@example.com", i+1),
			Name:            fmt.Sprintf("Demo Hero %d", i+1),
			DeviceModel:     models[i%len(models)],
			DeviceCondition: string(conditions[i%len(conditions)]),
		})
		if err != nil {
			return i, err
		}
	}
	return n, nil
}

func reconcile(ctx context.Context, a *app, out io.Writer) error {
	before, after, err := a.ledger.ReconcileStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "before:")
	if err := writeStats(out, before); err != nil {
		return err
	}
	fmt.Fprintln(out, "after:")
	return writeStats(out, after)
}

func top(ctx context.Context, a *app, n int, out io.Writer) error {
	if a.board != nil {
		entries, err := a.board.Top(ctx, int64(n))
		if err == nil {
			return writeBoard(out, entries)
		}
		a.log.Warn().Err(err).Msg("leaderboard unavailable, reading store")
	}
	list, err := a.ledger.GetTopHeroes(ctx, n)
	if err != nil {
		return err
	}
	return writeTop(out, list)
}

// serve reconciles on a schedule until ctx ends.
func serve(ctx context.Context, a *app, cfg *Config) error {
	c := cron.New()
	_, err := c.AddFunc(cfg.ReconcileSchedule, func() {
		runLog := a.log.With().Str("run_id", uuid.NewString()).Logger()
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		before, after, err := a.ledger.ReconcileStats(runCtx)
		if err != nil {
			runLog.Error().Err(err).Msg("scheduled reconcile failed")
			return
		}
		runLog.Info().
			Bool("drift", !before.Equal(after)).
			Int64("active_heroes", after.ActiveHeroes).
			Msg("scheduled reconcile")
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.ReconcileSchedule, err)
	}

	var srv *http.Server
	if a.registry != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	c.Start()
	a.log.Info().
		Str("schedule", cfg.ReconcileSchedule).
		Str("store", cfg.Store).
		Bool("leaderboard", a.board != nil).
		Str("metrics_addr", cfg.MetricsAddr).
		Msg("serving")

	<-ctx.Done()

	<-c.Stop().Done()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}
