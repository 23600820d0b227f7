package hero

import (
	"context"

	"github.com/xraph/heroes/id"
)

// Store persists heroes.
type Store interface {
	Create(ctx context.Context, h *Hero) error
	Get(ctx context.Context, heroID id.HeroID) (*Hero, error)
	GetByEmail(ctx context.Context, email string) (*Hero, error)
	List(ctx context.Context, opts ListOpts) ([]*Hero, error)
	Update(ctx context.Context, h *Hero) error
}

// ListOpts filters and orders hero listings.
//
// Without ByPoints heroes come back in registration order. With ByPoints
// they are sorted by points descending, ties kept in registration order.
type ListOpts struct {
	ActiveOnly bool
	ByPoints   bool
	Limit      int
	Offset     int
}
