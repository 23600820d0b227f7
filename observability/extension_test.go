package observability_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/heroes"
	"github.com/xraph/heroes/observability"
	"github.com/xraph/heroes/stats"
	"github.com/xraph/heroes/store/memory"
	"github.com/xraph/heroes/tradein"
)

func TestMetricsFollowLedger(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	factory := observability.NewPrometheusFactory(reg)
	metrics := observability.NewMetricsExtension(factory)

	l := heroes.New(memory.New(),
		heroes.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		heroes.WithPlugin(metrics),
	)
	require.NoError(t, l.Start(ctx))
	defer func() { _ = l.Stop() }()

	a, err := l.RegisterHero(ctx, heroes.RegisterInput{Email: "a@x", Name: "A", DeviceModel: "iPhone 13", DeviceCondition: "good"})
	require.NoError(t, err)
	b, err := l.RegisterHero(ctx, heroes.RegisterInput{Email: "b@x", Name: "B", DeviceModel: "iPhone 12", DeviceCondition: "good"})
	require.NoError(t, err)

	_, err = l.CreateReferral(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = l.AwardPoints(ctx, a.ID, 200, "promo")
	require.NoError(t, err)

	ti, err := l.CreateTradeIn(ctx, b.ID, heroes.TradeInInput{DeviceModel: "iPhone 11", DeviceCondition: "good"})
	require.NoError(t, err)
	_, err = l.UpdateTradeInStatus(ctx, ti.ID, tradein.StatusCompleted)
	require.NoError(t, err)

	_, err = l.DeactivateHero(ctx, b.ID)
	require.NoError(t, err)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.HeroRegistered.(prometheus.Counter)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReferralCreated.(prometheus.Counter)), 0)
	assert.InDelta(t, 50+200+42, testutil.ToFloat64(metrics.PointsAwarded.(prometheus.Counter)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TierPromoted.(prometheus.Counter)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TradeInSubmitted.(prometheus.Counter)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TradeInCompleted.(prometheus.Counter)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.HeroDeactivated.(prometheus.Counter)), 0)

	ps, err := l.GetImpactStats(ctx)
	require.NoError(t, err)
	assert.InDelta(t, float64(ps.TotalBottlesPrevented), testutil.ToFloat64(metrics.TotalBottlesPrevented.(prometheus.Gauge)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ActiveHeroes.(prometheus.Gauge)), 0)

	rewards := int64(0)
	_, err = l.UpdateImpactStats(ctx, stats.Patch{TotalRewards: &rewards})
	require.NoError(t, err)
	_, _, err = l.ReconcileStats(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.StatsDriftCorrected.(prometheus.Counter)), 0)
}

func TestPrometheusFactoryNaming(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := observability.NewPrometheusFactory(reg)

	c := f.Counter("heroes.hero.registered")
	c.Inc()
	assert.Same(t, c, f.Counter("heroes.hero.registered"), "same name yields same collector")

	f.Histogram("heroes.tradein.value").Observe(765)
	f.Gauge("heroes.stats.active_heroes").Set(3)

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.ElementsMatch(t, []string{
		"heroes_hero_registered_total",
		"heroes_tradein_value",
		"heroes_stats_active_heroes",
	}, names)
}

func TestPrometheusFactoryReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := observability.NewPrometheusFactory(reg)
	second := observability.NewPrometheusFactory(reg)

	first.Counter("heroes.referral.created").Inc()
	second.Counter("heroes.referral.created").Inc()

	assert.InDelta(t, 2, testutil.ToFloat64(first.Counter("heroes.referral.created").(prometheus.Counter)), 0)
}
