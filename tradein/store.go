package tradein

import (
	"context"

	"github.com/xraph/heroes/id"
)

// Store persists trade-ins.
type Store interface {
	Create(ctx context.Context, t *TradeIn) error
	Get(ctx context.Context, tradeInID id.TradeInID) (*TradeIn, error)
	// ListByHero returns a hero's trade-ins, newest first.
	ListByHero(ctx context.Context, heroID id.HeroID) ([]*TradeIn, error)
	Update(ctx context.Context, t *TradeIn) error
}
