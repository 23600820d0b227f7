// Package tradein defines device trade-in submissions and their lifecycle.
package tradein

import (
	"time"

	"github.com/xraph/heroes/id"
	"github.com/xraph/heroes/types"
)

// Status is the lifecycle state of a trade-in.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether a trade-in may move from one status to
// another. Only pending trade-ins move, and only to a terminal status.
func CanTransition(from, to Status) bool {
	return from == StatusPending && to.IsTerminal()
}

// TradeIn is one device trade-in submission.
//
// CompletedAt is set exactly when Status is completed.
type TradeIn struct {
	types.Entity
	ID              id.TradeInID `json:"id"`
	HeroID          id.HeroID    `json:"hero_id"`
	DeviceModel     string       `json:"device_model"`
	DeviceCondition string       `json:"device_condition"`
	TradeValue      int64        `json:"trade_value"`
	Status          Status       `json:"status"`
	PickupAddress   string       `json:"pickup_address,omitempty"`
	PickupDate      *time.Time   `json:"pickup_date,omitempty"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of t.
func (t *TradeIn) Clone() *TradeIn {
	if t == nil {
		return nil
	}
	c := *t
	if t.PickupDate != nil {
		pd := *t.PickupDate
		c.PickupDate = &pd
	}
	if t.CompletedAt != nil {
		ca := *t.CompletedAt
		c.CompletedAt = &ca
	}
	return &c
}
