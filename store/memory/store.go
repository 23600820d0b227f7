// Package memory implements store.Store in process memory.
//
// Records are kept in insertion order and copied on the way in and out, so
// callers never share state with the store. Transact holds the write lock
// for the whole unit of work and replays an undo journal when it fails.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/heroes"
	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/id"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	herostore "github.com/xraph/heroes/store"
	"github.com/xraph/heroes/tradein"
)

// compile-time interface check
var _ herostore.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	st     *state
	closed bool
}

type state struct {
	// Hero storage
	heroes    map[string]*hero.Hero
	heroOrder []string

	// Trade-in storage
	tradeIns     map[string]*tradein.TradeIn
	tradeInOrder []string

	// Referral storage, append-only
	referrals []*referral.Referral

	// Singleton aggregate, nil until first saved
	stats *stats.ProgramStats
}

func New() *Store {
	return &Store{
		st: &state{
			heroes:   make(map[string]*hero.Hero),
			tradeIns: make(map[string]*tradein.TradeIn),
		},
	}
}

func (s *Store) read(fn func(t *tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return heroes.ErrStoreClosed
	}
	return fn(&tx{st: s.st})
}

func (s *Store) write(fn func(t *tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return heroes.ErrStoreClosed
	}
	return fn(&tx{st: s.st})
}

// ==================== Hero Store ====================

func (s *Store) CreateHero(ctx context.Context, h *hero.Hero) error {
	return s.write(func(t *tx) error { return t.CreateHero(ctx, h) })
}

func (s *Store) GetHero(ctx context.Context, heroID id.HeroID) (h *hero.Hero, err error) {
	err = s.read(func(t *tx) error {
		h, err = t.GetHero(ctx, heroID)
		return err
	})
	return h, err
}

func (s *Store) GetHeroByEmail(ctx context.Context, email string) (h *hero.Hero, err error) {
	err = s.read(func(t *tx) error {
		h, err = t.GetHeroByEmail(ctx, email)
		return err
	})
	return h, err
}

func (s *Store) ListHeroes(ctx context.Context, opts hero.ListOpts) (list []*hero.Hero, err error) {
	err = s.read(func(t *tx) error {
		list, err = t.ListHeroes(ctx, opts)
		return err
	})
	return list, err
}

func (s *Store) UpdateHero(ctx context.Context, h *hero.Hero) error {
	return s.write(func(t *tx) error { return t.UpdateHero(ctx, h) })
}

// ==================== Trade-in Store ====================

func (s *Store) CreateTradeIn(ctx context.Context, ti *tradein.TradeIn) error {
	return s.write(func(t *tx) error { return t.CreateTradeIn(ctx, ti) })
}

func (s *Store) GetTradeIn(ctx context.Context, tradeInID id.TradeInID) (ti *tradein.TradeIn, err error) {
	err = s.read(func(t *tx) error {
		ti, err = t.GetTradeIn(ctx, tradeInID)
		return err
	})
	return ti, err
}

func (s *Store) ListTradeInsByHero(ctx context.Context, heroID id.HeroID) (list []*tradein.TradeIn, err error) {
	err = s.read(func(t *tx) error {
		list, err = t.ListTradeInsByHero(ctx, heroID)
		return err
	})
	return list, err
}

func (s *Store) UpdateTradeIn(ctx context.Context, ti *tradein.TradeIn) error {
	return s.write(func(t *tx) error { return t.UpdateTradeIn(ctx, ti) })
}

// ==================== Referral Store ====================

func (s *Store) CreateReferral(ctx context.Context, r *referral.Referral) error {
	return s.write(func(t *tx) error { return t.CreateReferral(ctx, r) })
}

func (s *Store) ListReferralsByReferrer(ctx context.Context, referrerID id.HeroID) (list []*referral.Referral, err error) {
	err = s.read(func(t *tx) error {
		list, err = t.ListReferralsByReferrer(ctx, referrerID)
		return err
	})
	return list, err
}

func (s *Store) GetReferralByReferee(ctx context.Context, refereeID id.HeroID) (r *referral.Referral, err error) {
	err = s.read(func(t *tx) error {
		r, err = t.GetReferralByReferee(ctx, refereeID)
		return err
	})
	return r, err
}

// ==================== Stats Store ====================

func (s *Store) GetStats(ctx context.Context) (ps *stats.ProgramStats, err error) {
	err = s.read(func(t *tx) error {
		ps, err = t.GetStats(ctx)
		return err
	})
	return ps, err
}

func (s *Store) SaveStats(ctx context.Context, ps *stats.ProgramStats) error {
	return s.write(func(t *tx) error { return t.SaveStats(ctx, ps) })
}

// ==================== Unit of work ====================

// Transact runs fn under the write lock. When fn fails or panics every
// change it made is undone before the lock is released.
func (s *Store) Transact(ctx context.Context, fn herostore.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return heroes.ErrStoreClosed
	}

	t := &tx{st: s.st, journal: true}
	defer func() {
		if r := recover(); r != nil {
			t.rollback()
			panic(r)
		}
	}()

	if err := fn(ctx, t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

// ==================== Core ====================

// Migrate is a no-op; there is no schema.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports whether the store is still open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return heroes.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Further calls fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// sortByPoints orders heroes by points descending. The sort is stable so
// ties keep registration order.
func sortByPoints(list []*hero.Hero) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Points > list[j].Points
	})
}

func paginate[T any](list []T, offset, limit int) []T {
	if offset > len(list) {
		offset = len(list)
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
