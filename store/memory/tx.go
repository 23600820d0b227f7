package memory

import (
	"context"

	"github.com/xraph/heroes"
	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/id"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	herostore "github.com/xraph/heroes/store"
	"github.com/xraph/heroes/tradein"
)

var _ herostore.Store = (*tx)(nil)

// tx operates on the state without locking. The owning Store holds the
// lock. When journal is set every mutation pushes its inverse onto undo.
type tx struct {
	st      *state
	journal bool
	undo    []func()
}

func (t *tx) record(fn func()) {
	if t.journal {
		t.undo = append(t.undo, fn)
	}
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// ──────────────────────────────────────────────────
// Heroes
// ──────────────────────────────────────────────────

func (t *tx) CreateHero(_ context.Context, h *hero.Hero) error {
	key := h.ID.String()
	if _, exists := t.st.heroes[key]; exists {
		return heroes.ErrAlreadyExists
	}

	n := len(t.st.heroOrder)
	t.st.heroes[key] = h.Clone()
	t.st.heroOrder = append(t.st.heroOrder, key)
	t.record(func() {
		delete(t.st.heroes, key)
		t.st.heroOrder = t.st.heroOrder[:n]
	})
	return nil
}

func (t *tx) GetHero(_ context.Context, heroID id.HeroID) (*hero.Hero, error) {
	if h, ok := t.st.heroes[heroID.String()]; ok {
		return h.Clone(), nil
	}
	return nil, heroes.ErrHeroNotFound
}

// GetHeroByEmail returns the earliest registration with this exact email.
func (t *tx) GetHeroByEmail(_ context.Context, email string) (*hero.Hero, error) {
	for _, key := range t.st.heroOrder {
		if h := t.st.heroes[key]; h.Email == email {
			return h.Clone(), nil
		}
	}
	return nil, heroes.ErrHeroNotFound
}

func (t *tx) ListHeroes(_ context.Context, opts hero.ListOpts) ([]*hero.Hero, error) {
	result := make([]*hero.Hero, 0, len(t.st.heroOrder))
	for _, key := range t.st.heroOrder {
		h := t.st.heroes[key]
		if opts.ActiveOnly && !h.IsActive {
			continue
		}
		result = append(result, h.Clone())
	}
	if opts.ByPoints {
		sortByPoints(result)
	}
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (t *tx) UpdateHero(_ context.Context, h *hero.Hero) error {
	key := h.ID.String()
	prev, exists := t.st.heroes[key]
	if !exists {
		return heroes.ErrHeroNotFound
	}

	t.st.heroes[key] = h.Clone()
	t.record(func() { t.st.heroes[key] = prev })
	return nil
}

// ──────────────────────────────────────────────────
// Trade-ins
// ──────────────────────────────────────────────────

func (t *tx) CreateTradeIn(_ context.Context, ti *tradein.TradeIn) error {
	key := ti.ID.String()
	if _, exists := t.st.tradeIns[key]; exists {
		return heroes.ErrAlreadyExists
	}

	n := len(t.st.tradeInOrder)
	t.st.tradeIns[key] = ti.Clone()
	t.st.tradeInOrder = append(t.st.tradeInOrder, key)
	t.record(func() {
		delete(t.st.tradeIns, key)
		t.st.tradeInOrder = t.st.tradeInOrder[:n]
	})
	return nil
}

func (t *tx) GetTradeIn(_ context.Context, tradeInID id.TradeInID) (*tradein.TradeIn, error) {
	if ti, ok := t.st.tradeIns[tradeInID.String()]; ok {
		return ti.Clone(), nil
	}
	return nil, heroes.ErrTradeInNotFound
}

// ListTradeInsByHero returns newest first.
func (t *tx) ListTradeInsByHero(_ context.Context, heroID id.HeroID) ([]*tradein.TradeIn, error) {
	want := heroID.String()
	result := make([]*tradein.TradeIn, 0)
	for i := len(t.st.tradeInOrder) - 1; i >= 0; i-- {
		ti := t.st.tradeIns[t.st.tradeInOrder[i]]
		if ti.HeroID.String() == want {
			result = append(result, ti.Clone())
		}
	}
	return result, nil
}

func (t *tx) UpdateTradeIn(_ context.Context, ti *tradein.TradeIn) error {
	key := ti.ID.String()
	prev, exists := t.st.tradeIns[key]
	if !exists {
		return heroes.ErrTradeInNotFound
	}

	t.st.tradeIns[key] = ti.Clone()
	t.record(func() { t.st.tradeIns[key] = prev })
	return nil
}

// ──────────────────────────────────────────────────
// Referrals
// ──────────────────────────────────────────────────

func (t *tx) CreateReferral(_ context.Context, r *referral.Referral) error {
	for _, existing := range t.st.referrals {
		if existing.ID.String() == r.ID.String() {
			return heroes.ErrAlreadyExists
		}
		if existing.RefereeID.String() == r.RefereeID.String() {
			return heroes.ErrAlreadyReferred
		}
	}

	n := len(t.st.referrals)
	c := *r
	t.st.referrals = append(t.st.referrals, &c)
	t.record(func() { t.st.referrals = t.st.referrals[:n] })
	return nil
}

// ListReferralsByReferrer returns newest first.
func (t *tx) ListReferralsByReferrer(_ context.Context, referrerID id.HeroID) ([]*referral.Referral, error) {
	want := referrerID.String()
	result := make([]*referral.Referral, 0)
	for i := len(t.st.referrals) - 1; i >= 0; i-- {
		if r := t.st.referrals[i]; r.ReferrerID.String() == want {
			c := *r
			result = append(result, &c)
		}
	}
	return result, nil
}

func (t *tx) GetReferralByReferee(_ context.Context, refereeID id.HeroID) (*referral.Referral, error) {
	want := refereeID.String()
	for _, r := range t.st.referrals {
		if r.RefereeID.String() == want {
			c := *r
			return &c, nil
		}
	}
	return nil, heroes.ErrReferralNotFound
}

// ──────────────────────────────────────────────────
// Stats
// ──────────────────────────────────────────────────

func (t *tx) GetStats(_ context.Context) (*stats.ProgramStats, error) {
	if t.st.stats == nil {
		return nil, heroes.ErrStatsNotFound
	}
	c := *t.st.stats
	return &c, nil
}

func (t *tx) SaveStats(_ context.Context, ps *stats.ProgramStats) error {
	prev := t.st.stats
	c := *ps
	t.st.stats = &c
	t.record(func() { t.st.stats = prev })
	return nil
}

// ──────────────────────────────────────────────────
// Unit of work
// ──────────────────────────────────────────────────

// Transact joins the enclosing unit of work.
func (t *tx) Transact(ctx context.Context, fn herostore.TxFunc) error {
	return fn(ctx, t)
}

func (t *tx) Migrate(_ context.Context) error { return nil }
func (t *tx) Ping(_ context.Context) error    { return nil }
func (t *tx) Close() error                    { return nil }
