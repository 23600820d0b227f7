package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	"github.com/xraph/heroes/tradein"
	"github.com/xraph/heroes/valuation"
)

// DefaultTimeout bounds a single plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so emitting an event only visits plugins
// that implement the hook.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onHeroRegistered       []OnHeroRegistered
	onHeroUpdated          []OnHeroUpdated
	onPointsAwarded        []OnPointsAwarded
	onTierChanged          []OnTierChanged
	onTradeInSubmitted     []OnTradeInSubmitted
	onTradeInStatusChanged []OnTradeInStatusChanged
	onReferralCreated      []OnReferralCreated
	onStatsUpdated         []OnStatsUpdated
	onStatsReconciled      []OnStatsReconciled
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnHeroRegistered); ok {
		r.onHeroRegistered = append(r.onHeroRegistered, v)
	}
	if v, ok := p.(OnHeroUpdated); ok {
		r.onHeroUpdated = append(r.onHeroUpdated, v)
	}
	if v, ok := p.(OnPointsAwarded); ok {
		r.onPointsAwarded = append(r.onPointsAwarded, v)
	}
	if v, ok := p.(OnTierChanged); ok {
		r.onTierChanged = append(r.onTierChanged, v)
	}
	if v, ok := p.(OnTradeInSubmitted); ok {
		r.onTradeInSubmitted = append(r.onTradeInSubmitted, v)
	}
	if v, ok := p.(OnTradeInStatusChanged); ok {
		r.onTradeInStatusChanged = append(r.onTradeInStatusChanged, v)
	}
	if v, ok := p.(OnReferralCreated); ok {
		r.onReferralCreated = append(r.onReferralCreated, v)
	}
	if v, ok := p.(OnStatsUpdated); ok {
		r.onStatsUpdated = append(r.onStatsUpdated, v)
	}
	if v, ok := p.(OnStatsReconciled); ok {
		r.onStatsReconciled = append(r.onStatsReconciled, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedHooks(p),
	)

	return nil
}

var hookTypes = []reflect.Type{
	reflect.TypeFor[OnInit](),
	reflect.TypeFor[OnShutdown](),
	reflect.TypeFor[OnHeroRegistered](),
	reflect.TypeFor[OnHeroUpdated](),
	reflect.TypeFor[OnPointsAwarded](),
	reflect.TypeFor[OnTierChanged](),
	reflect.TypeFor[OnTradeInSubmitted](),
	reflect.TypeFor[OnTradeInStatusChanged](),
	reflect.TypeFor[OnReferralCreated](),
	reflect.TypeFor[OnStatsUpdated](),
	reflect.TypeFor[OnStatsReconciled](),
}

// implementedHooks lists the hook interfaces p satisfies.
func implementedHooks(p Plugin) []string {
	var names []string
	t := reflect.TypeOf(p)
	for _, hook := range hookTypes {
		if t.Implements(hook) {
			names = append(names, hook.Name())
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for every cached plugin of one hook, logging failures.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, cached func() []T, fn func(T) error) {
	r.mu.RLock()
	plugins := cached()
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger any) {
	emit(ctx, r, "OnInit", func() []OnInit { return r.onInit }, func(p OnInit) error {
		return p.OnInit(ctx, ledger)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", func() []OnShutdown { return r.onShutdown }, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitHeroRegistered emits a hero registered event.
func (r *Registry) EmitHeroRegistered(ctx context.Context, h *hero.Hero) {
	emit(ctx, r, "OnHeroRegistered", func() []OnHeroRegistered { return r.onHeroRegistered }, func(p OnHeroRegistered) error {
		return p.OnHeroRegistered(ctx, h)
	})
}

// EmitHeroUpdated emits a hero updated event.
func (r *Registry) EmitHeroUpdated(ctx context.Context, before, after *hero.Hero) {
	emit(ctx, r, "OnHeroUpdated", func() []OnHeroUpdated { return r.onHeroUpdated }, func(p OnHeroUpdated) error {
		return p.OnHeroUpdated(ctx, before, after)
	})
}

// EmitPointsAwarded emits a points awarded event.
func (r *Registry) EmitPointsAwarded(ctx context.Context, h *hero.Hero, amount int64, reason string) {
	emit(ctx, r, "OnPointsAwarded", func() []OnPointsAwarded { return r.onPointsAwarded }, func(p OnPointsAwarded) error {
		return p.OnPointsAwarded(ctx, h, amount, reason)
	})
}

// EmitTierChanged emits a tier changed event.
func (r *Registry) EmitTierChanged(ctx context.Context, h *hero.Hero, from, to valuation.Tier) {
	emit(ctx, r, "OnTierChanged", func() []OnTierChanged { return r.onTierChanged }, func(p OnTierChanged) error {
		return p.OnTierChanged(ctx, h, from, to)
	})
}

// EmitTradeInSubmitted emits a trade-in submitted event.
func (r *Registry) EmitTradeInSubmitted(ctx context.Context, t *tradein.TradeIn) {
	emit(ctx, r, "OnTradeInSubmitted", func() []OnTradeInSubmitted { return r.onTradeInSubmitted }, func(p OnTradeInSubmitted) error {
		return p.OnTradeInSubmitted(ctx, t)
	})
}

// EmitTradeInStatusChanged emits a trade-in status changed event.
func (r *Registry) EmitTradeInStatusChanged(ctx context.Context, t *tradein.TradeIn, from tradein.Status) {
	emit(ctx, r, "OnTradeInStatusChanged", func() []OnTradeInStatusChanged { return r.onTradeInStatusChanged }, func(p OnTradeInStatusChanged) error {
		return p.OnTradeInStatusChanged(ctx, t, from)
	})
}

// EmitReferralCreated emits a referral created event.
func (r *Registry) EmitReferralCreated(ctx context.Context, ref *referral.Referral) {
	emit(ctx, r, "OnReferralCreated", func() []OnReferralCreated { return r.onReferralCreated }, func(p OnReferralCreated) error {
		return p.OnReferralCreated(ctx, ref)
	})
}

// EmitStatsUpdated emits a stats updated event.
func (r *Registry) EmitStatsUpdated(ctx context.Context, s *stats.ProgramStats) {
	emit(ctx, r, "OnStatsUpdated", func() []OnStatsUpdated { return r.onStatsUpdated }, func(p OnStatsUpdated) error {
		return p.OnStatsUpdated(ctx, s)
	})
}

// EmitStatsReconciled emits a stats reconciled event.
func (r *Registry) EmitStatsReconciled(ctx context.Context, before, after *stats.ProgramStats) {
	emit(ctx, r, "OnStatsReconciled", func() []OnStatsReconciled { return r.onStatsReconciled }, func(p OnStatsReconciled) error {
		return p.OnStatsReconciled(ctx, before, after)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
