// Package referral defines referral reward events.
package referral

import (
	"time"

	"github.com/xraph/heroes/id"
)

// Referral records that ReferrerID brought RefereeID into the program.
// Referrals are immutable once written.
type Referral struct {
	ID           id.ReferralID `json:"id"`
	ReferrerID   id.HeroID     `json:"referrer_id"`
	RefereeID    id.HeroID     `json:"referee_id"`
	PointsEarned int64         `json:"points_earned"`
	CreatedAt    time.Time     `json:"created_at"`
}
