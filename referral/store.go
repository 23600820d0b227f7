package referral

import (
	"context"

	"github.com/xraph/heroes/id"
)

// Store persists referrals.
type Store interface {
	Create(ctx context.Context, r *Referral) error
	// ListByReferrer returns the referrals credited to a hero, newest first.
	ListByReferrer(ctx context.Context, referrerID id.HeroID) ([]*Referral, error)
	// GetByReferee returns the referral that brought a hero in.
	GetByReferee(ctx context.Context, refereeID id.HeroID) (*Referral, error)
}
