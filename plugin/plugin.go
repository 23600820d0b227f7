// Package plugin provides an extensible plugin system for Heroes.
// Plugins hook into ledger events after the unit of work that produced them
// has committed. A failing plugin is logged and never rolls anything back.
package plugin

import (
	"context"

	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	"github.com/xraph/heroes/tradein"
	"github.com/xraph/heroes/valuation"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, ledger any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Hero hooks
// ──────────────────────────────────────────────────

// OnHeroRegistered is called after a hero is created.
type OnHeroRegistered interface {
	Plugin
	OnHeroRegistered(ctx context.Context, h *hero.Hero) error
}

// OnHeroUpdated is called after a profile patch.
type OnHeroUpdated interface {
	Plugin
	OnHeroUpdated(ctx context.Context, before, after *hero.Hero) error
}

// OnPointsAwarded is called after a hero's balance changes. Amount may be
// negative for administrative deductions.
type OnPointsAwarded interface {
	Plugin
	OnPointsAwarded(ctx context.Context, h *hero.Hero, amount int64, reason string) error
}

// OnTierChanged is called when a hero moves between tiers.
type OnTierChanged interface {
	Plugin
	OnTierChanged(ctx context.Context, h *hero.Hero, from, to valuation.Tier) error
}

// ──────────────────────────────────────────────────
// Trade-in hooks
// ──────────────────────────────────────────────────

// OnTradeInSubmitted is called after a trade-in is created.
type OnTradeInSubmitted interface {
	Plugin
	OnTradeInSubmitted(ctx context.Context, t *tradein.TradeIn) error
}

// OnTradeInStatusChanged is called after a trade-in leaves pending.
type OnTradeInStatusChanged interface {
	Plugin
	OnTradeInStatusChanged(ctx context.Context, t *tradein.TradeIn, from tradein.Status) error
}

// ──────────────────────────────────────────────────
// Referral hooks
// ──────────────────────────────────────────────────

// OnReferralCreated is called after a referral is recorded.
type OnReferralCreated interface {
	Plugin
	OnReferralCreated(ctx context.Context, r *referral.Referral) error
}

// ──────────────────────────────────────────────────
// Stats hooks
// ──────────────────────────────────────────────────

// OnStatsUpdated is called whenever the aggregate is written.
type OnStatsUpdated interface {
	Plugin
	OnStatsUpdated(ctx context.Context, s *stats.ProgramStats) error
}

// OnStatsReconciled is called after the aggregate is recomputed from hero
// records. Before is nil when no aggregate existed.
type OnStatsReconciled interface {
	Plugin
	OnStatsReconciled(ctx context.Context, before, after *stats.ProgramStats) error
}
