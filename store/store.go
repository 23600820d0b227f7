package store

import (
	"context"

	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/id"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	"github.com/xraph/heroes/tradein"
)

// TxFunc runs inside a unit of work. Every read and write made through tx
// commits together, or not at all when the function returns an error.
type TxFunc func(ctx context.Context, tx Store) error

// Store is the unified storage interface for all Heroes entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Hero methods
	CreateHero(ctx context.Context, h *hero.Hero) error
	GetHero(ctx context.Context, heroID id.HeroID) (*hero.Hero, error)
	GetHeroByEmail(ctx context.Context, email string) (*hero.Hero, error)
	ListHeroes(ctx context.Context, opts hero.ListOpts) ([]*hero.Hero, error)
	UpdateHero(ctx context.Context, h *hero.Hero) error

	// Trade-in methods
	CreateTradeIn(ctx context.Context, t *tradein.TradeIn) error
	GetTradeIn(ctx context.Context, tradeInID id.TradeInID) (*tradein.TradeIn, error)
	ListTradeInsByHero(ctx context.Context, heroID id.HeroID) ([]*tradein.TradeIn, error)
	UpdateTradeIn(ctx context.Context, t *tradein.TradeIn) error

	// Referral methods
	CreateReferral(ctx context.Context, r *referral.Referral) error
	ListReferralsByReferrer(ctx context.Context, referrerID id.HeroID) ([]*referral.Referral, error)
	GetReferralByReferee(ctx context.Context, refereeID id.HeroID) (*referral.Referral, error)

	// Stats methods
	GetStats(ctx context.Context) (*stats.ProgramStats, error)
	SaveStats(ctx context.Context, s *stats.ProgramStats) error

	// Transact runs fn as one atomic unit of work. Calling Transact on the
	// tx handed to fn joins the enclosing unit of work.
	Transact(ctx context.Context, fn TxFunc) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
