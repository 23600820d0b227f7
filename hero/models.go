// Package hero defines program participants and their profile patches.
package hero

import (
	"slices"

	"github.com/xraph/heroes/id"
	"github.com/xraph/heroes/types"
	"github.com/xraph/heroes/valuation"
)

// DefaultBadge is granted to every hero at registration.
const DefaultBadge = "Planet Saver"

// Hero is a registered program participant.
//
// Level always equals valuation.TierFor(Points) for records written by the
// ledger. Heroes are never deleted; IsActive=false hides them from listings.
type Hero struct {
	types.Entity
	ID               id.HeroID      `json:"id"`
	Email            string         `json:"email"`
	Name             string         `json:"name"`
	DeviceModel      string         `json:"device_model"`
	DeviceCondition  string         `json:"device_condition"`
	TradeValue       int64          `json:"trade_value"`
	Points           int64          `json:"points"`
	Level            valuation.Tier `json:"level"`
	Badges           []string       `json:"badges"`
	BottlesPrevented int64          `json:"bottles_prevented"`
	CO2Saved         int64          `json:"co2_saved"`
	RewardsEarned    int64          `json:"rewards_earned"`
	ReferralCount    int64          `json:"referral_count"`
	IsActive         bool           `json:"is_active"`
}

// Clone returns a deep copy of h.
func (h *Hero) Clone() *Hero {
	if h == nil {
		return nil
	}
	c := *h
	c.Badges = slices.Clone(h.Badges)
	return &c
}

// HasBadge reports whether the hero holds badge.
func (h *Hero) HasBadge(badge string) bool {
	return slices.Contains(h.Badges, badge)
}

// AddBadge grants badge unless already held. Badges behave as a set.
func (h *Hero) AddBadge(badge string) bool {
	if badge == "" || h.HasBadge(badge) {
		return false
	}
	h.Badges = append(h.Badges, badge)
	return true
}

// SetPoints sets the balance and re-derives the tier. It reports whether
// the tier changed.
func (h *Hero) SetPoints(points int64) bool {
	prev := h.Level
	h.Points = points
	h.Level = valuation.TierFor(points)
	return prev != h.Level
}

// Patch is a partial update of a hero's profile. Nil fields are left as is.
//
// There is deliberately no Level field: when Points is supplied the tier is
// re-derived from the new balance.
type Patch struct {
	Email           *string   `json:"email,omitempty"`
	Name            *string   `json:"name,omitempty"`
	DeviceModel     *string   `json:"device_model,omitempty"`
	DeviceCondition *string   `json:"device_condition,omitempty"`
	TradeValue      *int64    `json:"trade_value,omitempty"`
	Points          *int64    `json:"points,omitempty"`
	Badges          *[]string `json:"badges,omitempty"`
	IsActive        *bool     `json:"is_active,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Email == nil && p.Name == nil && p.DeviceModel == nil &&
		p.DeviceCondition == nil && p.TradeValue == nil && p.Points == nil &&
		p.Badges == nil && p.IsActive == nil
}

// ApplyTo merges the patch over h. UpdatedAt is the caller's concern.
func (p Patch) ApplyTo(h *Hero) {
	if p.Email != nil {
		h.Email = *p.Email
	}
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.DeviceModel != nil {
		h.DeviceModel = *p.DeviceModel
	}
	if p.DeviceCondition != nil {
		h.DeviceCondition = *p.DeviceCondition
	}
	if p.TradeValue != nil {
		h.TradeValue = *p.TradeValue
	}
	if p.Points != nil {
		h.SetPoints(*p.Points)
	}
	if p.Badges != nil {
		h.Badges = nil
		for _, b := range *p.Badges {
			h.AddBadge(b)
		}
	}
	if p.IsActive != nil {
		h.IsActive = *p.IsActive
	}
}
