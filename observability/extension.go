// Package observability provides a metrics extension for Heroes that records
// lifecycle event counts and program totals via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/plugin"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	"github.com/xraph/heroes/tradein"
	"github.com/xraph/heroes/valuation"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnHeroRegistered       = (*MetricsExtension)(nil)
	_ plugin.OnHeroUpdated          = (*MetricsExtension)(nil)
	_ plugin.OnPointsAwarded        = (*MetricsExtension)(nil)
	_ plugin.OnTierChanged          = (*MetricsExtension)(nil)
	_ plugin.OnTradeInSubmitted     = (*MetricsExtension)(nil)
	_ plugin.OnTradeInStatusChanged = (*MetricsExtension)(nil)
	_ plugin.OnReferralCreated      = (*MetricsExtension)(nil)
	_ plugin.OnStatsUpdated         = (*MetricsExtension)(nil)
	_ plugin.OnStatsReconciled      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// Gauge interface for metrics that go up and down.
type Gauge interface {
	Set(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
	Gauge(name string) Gauge
}

// MetricsExtension records program-wide lifecycle metrics.
// Register it as a Ledger plugin to automatically track program metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Hero metrics
	HeroRegistered   Counter
	HeroUpdated      Counter
	HeroDeactivated  Counter
	HeroTradeValue   Histogram
	PointsAwarded    Counter
	PointsDeducted   Counter
	TierPromoted     Counter
	TierDemoted      Counter

	// Trade-in metrics
	TradeInSubmitted Counter
	TradeInCompleted Counter
	TradeInCancelled Counter
	TradeInValue     Histogram

	// Referral metrics
	ReferralCreated Counter

	// Program totals, mirrored from the aggregate
	TotalBottlesPrevented Gauge
	TotalCO2Saved         Gauge
	TotalRewards          Gauge
	ActiveHeroes          Gauge
	StatsDriftCorrected   Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use NewPrometheusFactory outside forge, app.Metrics() inside it.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Hero metrics
		HeroRegistered:  factory.Counter("heroes.hero.registered"),
		HeroUpdated:     factory.Counter("heroes.hero.updated"),
		HeroDeactivated: factory.Counter("heroes.hero.deactivated"),
		HeroTradeValue:  factory.Histogram("heroes.hero.trade_value"),
		PointsAwarded:   factory.Counter("heroes.points.awarded"),
		PointsDeducted:  factory.Counter("heroes.points.deducted"),
		TierPromoted:    factory.Counter("heroes.tier.promoted"),
		TierDemoted:     factory.Counter("heroes.tier.demoted"),

		// Trade-in metrics
		TradeInSubmitted: factory.Counter("heroes.tradein.submitted"),
		TradeInCompleted: factory.Counter("heroes.tradein.completed"),
		TradeInCancelled: factory.Counter("heroes.tradein.cancelled"),
		TradeInValue:     factory.Histogram("heroes.tradein.value"),

		// Referral metrics
		ReferralCreated: factory.Counter("heroes.referral.created"),

		// Program totals
		TotalBottlesPrevented: factory.Gauge("heroes.stats.bottles_prevented"),
		TotalCO2Saved:         factory.Gauge("heroes.stats.co2_saved"),
		TotalRewards:          factory.Gauge("heroes.stats.rewards"),
		ActiveHeroes:          factory.Gauge("heroes.stats.active_heroes"),
		StatsDriftCorrected:   factory.Counter("heroes.stats.drift_corrected"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Hero hooks
// ──────────────────────────────────────────────────

// OnHeroRegistered implements plugin.OnHeroRegistered.
func (m *MetricsExtension) OnHeroRegistered(_ context.Context, h *hero.Hero) error {
	m.HeroRegistered.Inc()
	m.HeroTradeValue.Observe(float64(h.TradeValue))
	return nil
}

// OnHeroUpdated implements plugin.OnHeroUpdated.
func (m *MetricsExtension) OnHeroUpdated(_ context.Context, before, after *hero.Hero) error {
	m.HeroUpdated.Inc()
	if before.IsActive && !after.IsActive {
		m.HeroDeactivated.Inc()
	}
	return nil
}

// OnPointsAwarded implements plugin.OnPointsAwarded.
func (m *MetricsExtension) OnPointsAwarded(_ context.Context, _ *hero.Hero, amount int64, _ string) error {
	if amount < 0 {
		m.PointsDeducted.Add(float64(-amount))
		return nil
	}
	m.PointsAwarded.Add(float64(amount))
	return nil
}

// OnTierChanged implements plugin.OnTierChanged.
func (m *MetricsExtension) OnTierChanged(_ context.Context, _ *hero.Hero, from, to valuation.Tier) error {
	if to.Rank() > from.Rank() {
		m.TierPromoted.Inc()
	} else {
		m.TierDemoted.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Trade-in hooks
// ──────────────────────────────────────────────────

// OnTradeInSubmitted implements plugin.OnTradeInSubmitted.
func (m *MetricsExtension) OnTradeInSubmitted(_ context.Context, t *tradein.TradeIn) error {
	m.TradeInSubmitted.Inc()
	m.TradeInValue.Observe(float64(t.TradeValue))
	return nil
}

// OnTradeInStatusChanged implements plugin.OnTradeInStatusChanged.
func (m *MetricsExtension) OnTradeInStatusChanged(_ context.Context, t *tradein.TradeIn, _ tradein.Status) error {
	switch t.Status {
	case tradein.StatusCompleted:
		m.TradeInCompleted.Inc()
	case tradein.StatusCancelled:
		m.TradeInCancelled.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Referral and stats hooks
// ──────────────────────────────────────────────────

// OnReferralCreated implements plugin.OnReferralCreated.
func (m *MetricsExtension) OnReferralCreated(_ context.Context, _ *referral.Referral) error {
	m.ReferralCreated.Inc()
	return nil
}

// OnStatsUpdated implements plugin.OnStatsUpdated.
func (m *MetricsExtension) OnStatsUpdated(_ context.Context, s *stats.ProgramStats) error {
	m.TotalBottlesPrevented.Set(float64(s.TotalBottlesPrevented))
	m.TotalCO2Saved.Set(float64(s.TotalCO2Saved))
	m.TotalRewards.Set(float64(s.TotalRewards))
	m.ActiveHeroes.Set(float64(s.ActiveHeroes))
	return nil
}

// OnStatsReconciled implements plugin.OnStatsReconciled.
func (m *MetricsExtension) OnStatsReconciled(_ context.Context, before, after *stats.ProgramStats) error {
	if before != nil && !before.Equal(after) {
		m.StatsDriftCorrected.Inc()
	}
	return nil
}
