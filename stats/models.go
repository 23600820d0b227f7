// Package stats holds the program-wide impact aggregate.
package stats

import (
	"time"

	"github.com/xraph/heroes/hero"
)

// ProgramStats is the single program-wide aggregate.
//
// Every total is the sum of the corresponding field over all heroes.
// ActiveHeroes counts heroes with IsActive set.
type ProgramStats struct {
	TotalBottlesPrevented int64     `json:"total_bottles_prevented"`
	TotalCO2Saved         int64     `json:"total_co2_saved"`
	TotalRewards          int64     `json:"total_rewards"`
	ActiveHeroes          int64     `json:"active_heroes"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Delta is a signed change to the aggregate.
type Delta struct {
	Bottles      int64 `json:"bottles"`
	CO2          int64 `json:"co2"`
	Rewards      int64 `json:"rewards"`
	ActiveHeroes int64 `json:"active_heroes"`
}

// IsZero reports whether d changes nothing.
func (d Delta) IsZero() bool {
	return d == Delta{}
}

// Add returns d + o.
func (d Delta) Add(o Delta) Delta {
	return Delta{
		Bottles:      d.Bottles + o.Bottles,
		CO2:          d.CO2 + o.CO2,
		Rewards:      d.Rewards + o.Rewards,
		ActiveHeroes: d.ActiveHeroes + o.ActiveHeroes,
	}
}

// Sub returns d - o.
func (d Delta) Sub(o Delta) Delta {
	return Delta{
		Bottles:      d.Bottles - o.Bottles,
		CO2:          d.CO2 - o.CO2,
		Rewards:      d.Rewards - o.Rewards,
		ActiveHeroes: d.ActiveHeroes - o.ActiveHeroes,
	}
}

// ContributionOf is what one hero adds to the aggregate.
func ContributionOf(h *hero.Hero) Delta {
	if h == nil {
		return Delta{}
	}
	d := Delta{
		Bottles: h.BottlesPrevented,
		CO2:     h.CO2Saved,
		Rewards: h.RewardsEarned,
	}
	if h.IsActive {
		d.ActiveHeroes = 1
	}
	return d
}

// Diff is the aggregate change when a hero moves from before to after.
// A nil before means the hero is new.
func Diff(before, after *hero.Hero) Delta {
	return ContributionOf(after).Sub(ContributionOf(before))
}

// Apply adds d to the totals and stamps UpdatedAt.
func (s *ProgramStats) Apply(d Delta, at time.Time) {
	s.TotalBottlesPrevented += d.Bottles
	s.TotalCO2Saved += d.CO2
	s.TotalRewards += d.Rewards
	s.ActiveHeroes += d.ActiveHeroes
	s.UpdatedAt = at.UTC()
}

// Recompute derives the aggregate from scratch.
func Recompute(heroes []*hero.Hero, at time.Time) *ProgramStats {
	var d Delta
	for _, h := range heroes {
		d = d.Add(ContributionOf(h))
	}
	s := &ProgramStats{}
	s.Apply(d, at)
	return s
}

// Equal compares totals, ignoring UpdatedAt.
func (s *ProgramStats) Equal(o *ProgramStats) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.TotalBottlesPrevented == o.TotalBottlesPrevented &&
		s.TotalCO2Saved == o.TotalCO2Saved &&
		s.TotalRewards == o.TotalRewards &&
		s.ActiveHeroes == o.ActiveHeroes
}

// Patch overwrites selected totals. Nil fields are left as is.
type Patch struct {
	TotalBottlesPrevented *int64 `json:"total_bottles_prevented,omitempty"`
	TotalCO2Saved         *int64 `json:"total_co2_saved,omitempty"`
	TotalRewards          *int64 `json:"total_rewards,omitempty"`
	ActiveHeroes          *int64 `json:"active_heroes,omitempty"`
}

// ApplyTo merges the patch over s and stamps UpdatedAt.
func (p Patch) ApplyTo(s *ProgramStats, at time.Time) {
	if p.TotalBottlesPrevented != nil {
		s.TotalBottlesPrevented = *p.TotalBottlesPrevented
	}
	if p.TotalCO2Saved != nil {
		s.TotalCO2Saved = *p.TotalCO2Saved
	}
	if p.TotalRewards != nil {
		s.TotalRewards = *p.TotalRewards
	}
	if p.ActiveHeroes != nil {
		s.ActiveHeroes = *p.ActiveHeroes
	}
	s.UpdatedAt = at.UTC()
}
