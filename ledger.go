package heroes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/id"
	"github.com/xraph/heroes/plugin"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	"github.com/xraph/heroes/store"
	"github.com/xraph/heroes/tradein"
	"github.com/xraph/heroes/types"
	"github.com/xraph/heroes/valuation"
)

// DefaultTopLimit is the leaderboard size when none is requested.
const DefaultTopLimit = 10

// Reasons attached to point awards.
const (
	ReasonReferral         = "referral"
	ReasonTradeInCompleted = "trade_in_completed"
	ReasonManual           = "manual"
)

// Ledger is the loyalty and trade-in engine.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time
	seed    stats.ProgramStats

	skipMigrate bool
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		clock:   time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithClock replaces the wall clock used for server-stamped timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithSeedStats sets the aggregate written on Start when the store has none.
func WithSeedStats(seed stats.ProgramStats) Option {
	return func(l *Ledger) {
		l.seed = seed
	}
}

// WithSkipMigrate makes Start leave the schema alone. The aggregate is
// still seeded and plugins still receive OnInit.
func WithSkipMigrate() Option {
	return func(l *Ledger) {
		l.skipMigrate = true
	}
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Start migrates the store unless WithSkipMigrate is set, makes sure the
// aggregate exists and fires OnInit.
func (l *Ledger) Start(ctx context.Context) error {
	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	seeded := false
	err := l.store.Transact(ctx, func(ctx context.Context, tx store.Store) error {
		_, err := tx.GetStats(ctx)
		if !errors.Is(err, ErrStatsNotFound) {
			return err
		}
		seeded = true
		return tx.SaveStats(ctx, l.seedStats())
	})
	if err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("heroes ledger started",
		"plugins", l.plugins.Count(),
		"stats_seeded", seeded,
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Health checks the store.
func (l *Ledger) Health(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// Quote prices a device without touching ledger state.
func (l *Ledger) Quote(model, condition string) valuation.Quote {
	return valuation.NewQuote(model, condition)
}

// ──────────────────────────────────────────────────
// Hero Management
// ──────────────────────────────────────────────────

// CreateHero registers a hero with a precomputed trade value. The hero
// starts with StartingPoints, the Bronze tier and the default badge, and
// the aggregate grows by the hero's contribution in the same unit of work.
// Duplicate emails are accepted.
func (l *Ledger) CreateHero(ctx context.Context, in CreateHeroInput) (*hero.Hero, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := l.now()
	impact := valuation.ImpactOf(in.TradeValue)
	h := &hero.Hero{
		Entity:           types.NewEntityAt(now),
		ID:               id.NewHeroID(),
		Email:            in.Email,
		Name:             in.Name,
		DeviceModel:      in.DeviceModel,
		DeviceCondition:  in.DeviceCondition,
		TradeValue:       in.TradeValue,
		Points:           valuation.StartingPoints,
		Level:            valuation.TierFor(valuation.StartingPoints),
		Badges:           []string{hero.DefaultBadge},
		BottlesPrevented: impact.BottlesPrevented,
		CO2Saved:         impact.CO2Saved,
		RewardsEarned:    in.TradeValue,
		IsActive:         true,
	}

	err := l.transact(ctx, func(ctx context.Context, tx store.Store, out *outbox) error {
		if err := tx.CreateHero(ctx, h); err != nil {
			return err
		}
		return l.bumpStats(ctx, tx, stats.Diff(nil, h), out)
	})
	if err != nil {
		return nil, err
	}

	l.plugins.EmitHeroRegistered(ctx, h.Clone())
	l.logger.Debug("hero registered", "hero_id", h.ID.String(), "trade_value", h.TradeValue)
	return h, nil
}

// RegisterHero prices the submitted device and creates the hero.
func (l *Ledger) RegisterHero(ctx context.Context, in RegisterInput) (*hero.Hero, error) {
	return l.CreateHero(ctx, CreateHeroInput{
		Email:           in.Email,
		Name:            in.Name,
		DeviceModel:     in.DeviceModel,
		DeviceCondition: in.DeviceCondition,
		TradeValue:      valuation.TradeValue(in.DeviceModel, in.DeviceCondition),
	})
}

// GetHero retrieves a hero by ID.
func (l *Ledger) GetHero(ctx context.Context, heroID id.HeroID) (*hero.Hero, error) {
	return l.store.GetHero(ctx, heroID)
}

// GetHeroByEmail retrieves the earliest hero registered with email.
// Matching is case-sensitive.
func (l *Ledger) GetHeroByEmail(ctx context.Context, email string) (*hero.Hero, error) {
	return l.store.GetHeroByEmail(ctx, email)
}

// UpdateHero applies a profile patch and refreshes UpdatedAt. Patching
// Points re-derives the tier, and flipping IsActive adjusts the aggregate's
// active hero count in the same unit of work.
func (l *Ledger) UpdateHero(ctx context.Context, heroID id.HeroID, patch hero.Patch) (*hero.Hero, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var before, after *hero.Hero
	err := l.transact(ctx, func(ctx context.Context, tx store.Store, out *outbox) error {
		var err error
		before, err = tx.GetHero(ctx, heroID)
		if err != nil {
			return err
		}

		after = before.Clone()
		patch.ApplyTo(after)
		after.TouchAt(l.now())
		if err := tx.UpdateHero(ctx, after); err != nil {
			return err
		}

		if before.Level != after.Level {
			l.emitTierChanged(out, after, before.Level)
		}
		return l.bumpStats(ctx, tx, stats.Diff(before, after), out)
	})
	if err != nil {
		return nil, err
	}

	l.plugins.EmitHeroUpdated(ctx, before, after.Clone())
	return after, nil
}

// DeactivateHero hides a hero from listings and the active count.
func (l *Ledger) DeactivateHero(ctx context.Context, heroID id.HeroID) (*hero.Hero, error) {
	active := false
	return l.UpdateHero(ctx, heroID, hero.Patch{IsActive: &active})
}

// ReactivateHero reverses DeactivateHero.
func (l *Ledger) ReactivateHero(ctx context.Context, heroID id.HeroID) (*hero.Hero, error) {
	active := true
	return l.UpdateHero(ctx, heroID, hero.Patch{IsActive: &active})
}

// AwardPoints adds amount to a hero's balance and re-derives the tier.
// A negative amount deducts, but never below zero.
func (l *Ledger) AwardPoints(ctx context.Context, heroID id.HeroID, amount int64, reason string) (*hero.Hero, error) {
	if amount == 0 {
		return nil, ValidationError{Field: "amount", Message: "must be non-zero"}
	}
	if reason == "" {
		reason = ReasonManual
	}

	var h *hero.Hero
	err := l.transact(ctx, func(ctx context.Context, tx store.Store, out *outbox) error {
		var err error
		h, err = tx.GetHero(ctx, heroID)
		if err != nil {
			return err
		}
		if h.Points+amount < 0 {
			return fmt.Errorf("%w: balance %d, deduction %d", ErrInsufficientPoints, h.Points, -amount)
		}

		l.awardPoints(h, amount, reason, out)
		h.TouchAt(l.now())
		return tx.UpdateHero(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// RecomputeTier re-derives a hero's tier from its balance, repairing
// records whose level drifted. Nothing is written when the tier is right.
func (l *Ledger) RecomputeTier(ctx context.Context, heroID id.HeroID) (*hero.Hero, error) {
	var h *hero.Hero
	err := l.transact(ctx, func(ctx context.Context, tx store.Store, out *outbox) error {
		var err error
		h, err = tx.GetHero(ctx, heroID)
		if err != nil {
			return err
		}

		from := h.Level
		if !h.SetPoints(h.Points) {
			return nil
		}
		h.TouchAt(l.now())
		if err := tx.UpdateHero(ctx, h); err != nil {
			return err
		}
		l.emitTierChanged(out, h, from)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// GetTopHeroes returns active heroes by points descending, at most limit
// of them. Ties keep registration order. A non-positive limit means
// DefaultTopLimit.
func (l *Ledger) GetTopHeroes(ctx context.Context, limit int) ([]*hero.Hero, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	return l.store.ListHeroes(ctx, hero.ListOpts{ActiveOnly: true, ByPoints: true, Limit: limit})
}

// GetAllHeroes returns every active hero in registration order.
func (l *Ledger) GetAllHeroes(ctx context.Context) ([]*hero.Hero, error) {
	return l.store.ListHeroes(ctx, hero.ListOpts{ActiveOnly: true})
}

// ListHeroes exposes the raw listing, inactive heroes included on request.
func (l *Ledger) ListHeroes(ctx context.Context, opts hero.ListOpts) ([]*hero.Hero, error) {
	return l.store.ListHeroes(ctx, opts)
}

// ──────────────────────────────────────────────────
// Trade-in Management
// ──────────────────────────────────────────────────

// CreateTradeIn submits a device for an existing, active hero. The trade
// value is priced by the valuation rules and the trade-in starts pending.
func (l *Ledger) CreateTradeIn(ctx context.Context, heroID id.HeroID, in TradeInInput) (*tradein.TradeIn, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := l.now()
	t := &tradein.TradeIn{
		Entity:          types.NewEntityAt(now),
		ID:              id.NewTradeInID(),
		HeroID:          heroID,
		DeviceModel:     in.DeviceModel,
		DeviceCondition: in.DeviceCondition,
		TradeValue:      valuation.TradeValue(in.DeviceModel, in.DeviceCondition),
		Status:          tradein.StatusPending,
		PickupAddress:   in.PickupAddress,
	}
	if in.PickupDate != nil {
		pd := in.PickupDate.UTC()
		t.PickupDate = &pd
	}

	err := l.transact(ctx, func(ctx context.Context, tx store.Store, _ *outbox) error {
		h, err := tx.GetHero(ctx, heroID)
		if err != nil {
			return err
		}
		if !h.IsActive {
			return ErrHeroInactive
		}
		return tx.CreateTradeIn(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	l.plugins.EmitTradeInSubmitted(ctx, t.Clone())
	return t, nil
}

// GetTradeIn retrieves a trade-in by ID.
func (l *Ledger) GetTradeIn(ctx context.Context, tradeInID id.TradeInID) (*tradein.TradeIn, error) {
	return l.store.GetTradeIn(ctx, tradeInID)
}

// GetTradeInsByHero returns a hero's trade-ins, newest first.
func (l *Ledger) GetTradeInsByHero(ctx context.Context, heroID id.HeroID) ([]*tradein.TradeIn, error) {
	return l.store.ListTradeInsByHero(ctx, heroID)
}

// UpdateTradeInStatus moves a pending trade-in to completed or cancelled.
// Any other transition fails with ErrInvalidTransition and leaves the
// record untouched. Completion stamps CompletedAt and credits the hero
// with the trade value, its impact and CompletionPoints, growing the
// aggregate in the same unit of work.
func (l *Ledger) UpdateTradeInStatus(ctx context.Context, tradeInID id.TradeInID, status tradein.Status) (*tradein.TradeIn, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var t *tradein.TradeIn
	var from tradein.Status
	err := l.transact(ctx, func(ctx context.Context, tx store.Store, out *outbox) error {
		var err error
		t, err = tx.GetTradeIn(ctx, tradeInID)
		if err != nil {
			return err
		}

		from = t.Status
		if !tradein.CanTransition(from, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
		}

		now := l.now()
		t.Status = status
		if status == tradein.StatusCompleted {
			t.CompletedAt = &now
		}
		t.TouchAt(now)
		if err := tx.UpdateTradeIn(ctx, t); err != nil {
			return err
		}

		if status == tradein.StatusCompleted {
			return l.creditTradeIn(ctx, tx, t, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.plugins.EmitTradeInStatusChanged(ctx, t.Clone(), from)
	return t, nil
}

func (l *Ledger) creditTradeIn(ctx context.Context, tx store.Store, t *tradein.TradeIn, out *outbox) error {
	h, err := tx.GetHero(ctx, t.HeroID)
	if err != nil {
		return err
	}
	before := h.Clone()

	impact := valuation.ImpactOf(t.TradeValue)
	h.TradeValue = t.TradeValue
	h.RewardsEarned += t.TradeValue
	h.BottlesPrevented += impact.BottlesPrevented
	h.CO2Saved += impact.CO2Saved
	if pts := valuation.CompletionPoints(t.TradeValue); pts > 0 {
		l.awardPoints(h, pts, ReasonTradeInCompleted, out)
	}
	h.TouchAt(l.now())

	if err := tx.UpdateHero(ctx, h); err != nil {
		return err
	}
	return l.bumpStats(ctx, tx, stats.Diff(before, h), out)
}

// ──────────────────────────────────────────────────
// Referral Management
// ──────────────────────────────────────────────────

// CreateReferral credits referrerID with ReferralBonus points and one
// referral for bringing in refereeID. Both heroes must exist, must differ,
// and a referee can only be referred once. The referee is never modified.
func (l *Ledger) CreateReferral(ctx context.Context, referrerID, refereeID id.HeroID) (*referral.Referral, error) {
	var me MultiError
	if referrerID.IsNil() {
		me.Add(ValidationError{Field: "referrer_id", Message: "is required"})
	}
	if refereeID.IsNil() {
		me.Add(ValidationError{Field: "referee_id", Message: "is required"})
	}
	if err := me.ErrOrNil(); err != nil {
		return nil, err
	}
	if referrerID.String() == refereeID.String() {
		return nil, ErrSelfReferral
	}

	r := &referral.Referral{
		ID:           id.NewReferralID(),
		ReferrerID:   referrerID,
		RefereeID:    refereeID,
		PointsEarned: valuation.ReferralBonus,
		CreatedAt:    l.now(),
	}

	err := l.transact(ctx, func(ctx context.Context, tx store.Store, out *outbox) error {
		// Both rows are locked in id order so that opposite referrals
		// running at once cannot deadlock.
		var referrer *hero.Hero
		for _, hid := range lockOrder(referrerID, refereeID) {
			h, err := tx.GetHero(ctx, hid)
			if hid.String() == referrerID.String() {
				if err != nil {
					return fmt.Errorf("referrer: %w", err)
				}
				referrer = h
				continue
			}
			if err != nil {
				return fmt.Errorf("referee: %w", err)
			}
		}

		_, err := tx.GetReferralByReferee(ctx, refereeID)
		switch {
		case err == nil:
			return ErrAlreadyReferred
		case !errors.Is(err, ErrReferralNotFound):
			return err
		}

		if err := tx.CreateReferral(ctx, r); err != nil {
			return err
		}

		referrer.ReferralCount++
		l.awardPoints(referrer, r.PointsEarned, ReasonReferral, out)
		referrer.TouchAt(l.now())
		return tx.UpdateHero(ctx, referrer)
	})
	if err != nil {
		return nil, err
	}

	rc := *r
	l.plugins.EmitReferralCreated(ctx, &rc)
	return r, nil
}

// GetReferralsByHero returns the referrals credited to heroID, newest first.
func (l *Ledger) GetReferralsByHero(ctx context.Context, heroID id.HeroID) ([]*referral.Referral, error) {
	return l.store.ListReferralsByReferrer(ctx, heroID)
}

// GetReferralByReferee returns the referral that brought heroID in.
func (l *Ledger) GetReferralByReferee(ctx context.Context, heroID id.HeroID) (*referral.Referral, error) {
	return l.store.GetReferralByReferee(ctx, heroID)
}

// ──────────────────────────────────────────────────
// Program Stats
// ──────────────────────────────────────────────────

// GetImpactStats returns the current aggregate.
func (l *Ledger) GetImpactStats(ctx context.Context) (*stats.ProgramStats, error) {
	return l.store.GetStats(ctx)
}

// UpdateImpactStats overwrites selected totals. It is meant for
// administrative corrections; per-event increments happen inline.
func (l *Ledger) UpdateImpactStats(ctx context.Context, patch stats.Patch) (*stats.ProgramStats, error) {
	if err := validateStatsPatch(patch); err != nil {
		return nil, err
	}

	var ps *stats.ProgramStats
	err := l.transact(ctx, func(ctx context.Context, tx store.Store, out *outbox) error {
		var err error
		ps, err = l.loadStats(ctx, tx)
		if err != nil {
			return err
		}
		patch.ApplyTo(ps, l.now())
		if err := tx.SaveStats(ctx, ps); err != nil {
			return err
		}
		l.emitStatsUpdated(out, ps)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ps, nil
}

// ReconcileStats recomputes the aggregate from every hero record, active
// or not, and stores the result. Before is nil when no aggregate existed.
func (l *Ledger) ReconcileStats(ctx context.Context) (before, after *stats.ProgramStats, err error) {
	err = l.transact(ctx, func(ctx context.Context, tx store.Store, out *outbox) error {
		current, err := tx.GetStats(ctx)
		switch {
		case err == nil:
			before = current
		case errors.Is(err, ErrStatsNotFound):
			before = nil
		default:
			return err
		}

		all, err := tx.ListHeroes(ctx, hero.ListOpts{})
		if err != nil {
			return err
		}
		after = stats.Recompute(all, l.now())
		if err := tx.SaveStats(ctx, after); err != nil {
			return err
		}
		l.emitStatsUpdated(out, after)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if before != nil && !before.Equal(after) {
		l.logger.Warn("program stats drift corrected",
			"bottles_before", before.TotalBottlesPrevented,
			"bottles_after", after.TotalBottlesPrevented,
			"rewards_before", before.TotalRewards,
			"rewards_after", after.TotalRewards,
			"active_before", before.ActiveHeroes,
			"active_after", after.ActiveHeroes,
		)
	}
	l.plugins.EmitStatsReconciled(ctx, before, after)
	return before, after, nil
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

func (l *Ledger) now() time.Time {
	return l.clock().UTC()
}

func (l *Ledger) seedStats() *stats.ProgramStats {
	s := l.seed
	s.UpdatedAt = l.now()
	return &s
}

// loadStats reads the aggregate, falling back to the seed when absent.
func (l *Ledger) loadStats(ctx context.Context, tx store.Store) (*stats.ProgramStats, error) {
	ps, err := tx.GetStats(ctx)
	if errors.Is(err, ErrStatsNotFound) {
		return l.seedStats(), nil
	}
	return ps, err
}

// bumpStats adds d to the aggregate inside tx.
func (l *Ledger) bumpStats(ctx context.Context, tx store.Store, d stats.Delta, out *outbox) error {
	if d.IsZero() {
		return nil
	}
	ps, err := l.loadStats(ctx, tx)
	if err != nil {
		return err
	}
	ps.Apply(d, l.now())
	if err := tx.SaveStats(ctx, ps); err != nil {
		return err
	}
	l.emitStatsUpdated(out, ps)
	return nil
}

// awardPoints changes the balance of a loaded hero and queues the events.
// The caller persists the hero.
func (l *Ledger) awardPoints(h *hero.Hero, amount int64, reason string, out *outbox) {
	from := h.Level
	h.SetPoints(h.Points + amount)

	snapshot := h.Clone()
	out.add(func(ctx context.Context) {
		l.plugins.EmitPointsAwarded(ctx, snapshot, amount, reason)
	})
	if from != h.Level {
		l.emitTierChanged(out, h, from)
	}
}

func (l *Ledger) emitTierChanged(out *outbox, h *hero.Hero, from valuation.Tier) {
	snapshot := h.Clone()
	out.add(func(ctx context.Context) {
		l.plugins.EmitTierChanged(ctx, snapshot, from, snapshot.Level)
	})
}

func (l *Ledger) emitStatsUpdated(out *outbox, ps *stats.ProgramStats) {
	snapshot := *ps
	out.add(func(ctx context.Context) {
		l.plugins.EmitStatsUpdated(ctx, &snapshot)
	})
}

// outbox holds plugin events until the unit of work commits.
type outbox []func(context.Context)

func (o *outbox) add(fn func(context.Context)) {
	*o = append(*o, fn)
}

// transact runs fn in a store unit of work and delivers queued events only
// after it commits. The outbox is reset on every attempt because durable
// stores may retry fn.
func (l *Ledger) transact(ctx context.Context, fn func(ctx context.Context, tx store.Store, out *outbox) error) error {
	var out outbox
	err := l.store.Transact(ctx, func(ctx context.Context, tx store.Store) error {
		out = out[:0]
		return fn(ctx, tx, &out)
	})
	if err != nil {
		return err
	}
	for _, emit := range out {
		emit(ctx)
	}
	return nil
}

// lockOrder returns a and b sorted by their string form.
func lockOrder(a, b id.HeroID) []id.HeroID {
	if b.String() < a.String() {
		return []id.HeroID{b, a}
	}
	return []id.HeroID{a, b}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
