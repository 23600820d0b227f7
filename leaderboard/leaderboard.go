// Package leaderboard mirrors hero point balances into a Redis sorted set.
//
// The ledger store stays the source of truth. The mirror is kept current
// through plugin hooks and can be rebuilt from the store at any time.
//
// Members are stored with the negated balance as score and read in
// ascending order. Redis orders equal scores by member bytes, and hero ids
// are time-ordered TypeIDs, so tied heroes come back in registration order,
// the same order the ledger's GetTopHeroes uses.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/id"
	"github.com/xraph/heroes/plugin"
)

// DefaultKey is the sorted-set key used when none is configured.
const DefaultKey = "heroes:leaderboard"

var (
	_ plugin.Plugin           = (*Leaderboard)(nil)
	_ plugin.OnHeroRegistered = (*Leaderboard)(nil)
	_ plugin.OnHeroUpdated    = (*Leaderboard)(nil)
	_ plugin.OnPointsAwarded  = (*Leaderboard)(nil)
)

// Entry is one leaderboard position. Rank starts at 1.
type Entry struct {
	Rank   int64     `json:"rank"`
	HeroID id.HeroID `json:"hero_id"`
	Points int64     `json:"points"`
}

// Leaderboard is a Redis-backed points ranking.
type Leaderboard struct {
	client redis.UniversalClient
	key    string
	logger *slog.Logger
}

// Option configures a Leaderboard.
type Option func(*Leaderboard)

// WithKey sets the sorted-set key.
func WithKey(key string) Option {
	return func(l *Leaderboard) {
		if key != "" {
			l.key = key
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Leaderboard) { l.logger = logger }
}

// New returns a leaderboard writing to client.
func New(client redis.UniversalClient, opts ...Option) *Leaderboard {
	l := &Leaderboard{
		client: client,
		key:    DefaultKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements plugin.Plugin.
func (l *Leaderboard) Name() string { return "redis-leaderboard" }

// Key returns the sorted-set key.
func (l *Leaderboard) Key() string { return l.key }

// OnHeroRegistered implements plugin.OnHeroRegistered.
func (l *Leaderboard) OnHeroRegistered(ctx context.Context, h *hero.Hero) error {
	return l.Sync(ctx, h)
}

// OnHeroUpdated implements plugin.OnHeroUpdated.
func (l *Leaderboard) OnHeroUpdated(ctx context.Context, _, after *hero.Hero) error {
	return l.Sync(ctx, after)
}

// OnPointsAwarded implements plugin.OnPointsAwarded.
func (l *Leaderboard) OnPointsAwarded(ctx context.Context, h *hero.Hero, _ int64, _ string) error {
	return l.Sync(ctx, h)
}

// Sync writes one hero's balance. Inactive heroes are removed.
func (l *Leaderboard) Sync(ctx context.Context, h *hero.Hero) error {
	if h == nil || h.ID.IsNil() {
		return errors.New("leaderboard: hero without id")
	}
	heroID := h.ID.String()
	if !h.IsActive {
		if err := l.client.ZRem(ctx, l.key, heroID).Err(); err != nil {
			return fmt.Errorf("leaderboard: remove %s: %w", heroID, err)
		}
		return nil
	}
	if err := l.client.ZAdd(ctx, l.key, scored(h)).Err(); err != nil {
		return fmt.Errorf("leaderboard: add %s: %w", heroID, err)
	}
	return nil
}

// Top returns the n highest balances, best first. Ties keep registration
// order.
func (l *Leaderboard) Top(ctx context.Context, n int64) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}
	zs, err := l.client.ZRangeWithScores(ctx, l.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: top: %w", err)
	}

	entries := make([]Entry, 0, len(zs))
	for i, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		heroID, err := id.ParseHeroID(member)
		if err != nil {
			l.logger.Warn("leaderboard: skipping malformed member", "member", member, "error", err)
			continue
		}
		entries = append(entries, Entry{
			Rank:   int64(i) + 1,
			HeroID: heroID,
			Points: -int64(z.Score),
		})
	}
	return entries, nil
}

// Rank returns the 1-based position of a hero, or 0 when absent.
func (l *Leaderboard) Rank(ctx context.Context, heroID id.HeroID) (int64, error) {
	rank, err := l.client.ZRank(ctx, l.key, heroID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("leaderboard: rank: %w", err)
	}
	return rank + 1, nil
}

// Rebuild replaces the sorted set with the active heroes given.
func (l *Leaderboard) Rebuild(ctx context.Context, heroes []*hero.Hero) error {
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, l.key)
		members := make([]redis.Z, 0, len(heroes))
		for _, h := range heroes {
			if h == nil || !h.IsActive {
				continue
			}
			members = append(members, scored(h))
		}
		if len(members) > 0 {
			pipe.ZAdd(ctx, l.key, members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("leaderboard: rebuild: %w", err)
	}
	l.logger.Info("leaderboard rebuilt", "key", l.key, "heroes", len(heroes))
	return nil
}

// scored is the sorted-set entry for an active hero.
func scored(h *hero.Hero) redis.Z {
	return redis.Z{Score: -float64(h.Points), Member: h.ID.String()}
}

// Close releases the Redis client.
func (l *Leaderboard) Close() error {
	return l.client.Close()
}
