package heroes

import (
	"time"

	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/stats"
)

// CreateHeroInput is a registration with a trade value already priced by
// the valuation rules.
type CreateHeroInput struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	DeviceModel     string `json:"device_model"`
	DeviceCondition string `json:"device_condition"`
	TradeValue      int64  `json:"trade_value"`
}

func (in CreateHeroInput) validate() error {
	var me MultiError
	if blank(in.Email) {
		me.Add(ValidationError{Field: "email", Message: "is required"})
	}
	if blank(in.Name) {
		me.Add(ValidationError{Field: "name", Message: "is required"})
	}
	if blank(in.DeviceModel) {
		me.Add(ValidationError{Field: "device_model", Message: "is required"})
	}
	if blank(in.DeviceCondition) {
		me.Add(ValidationError{Field: "device_condition", Message: "is required"})
	}
	if in.TradeValue < 0 {
		me.Add(ValidationError{Field: "trade_value", Message: "must not be negative"})
	}
	return me.ErrOrNil()
}

// RegisterInput is a registration the ledger prices itself.
type RegisterInput struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	DeviceModel     string `json:"device_model"`
	DeviceCondition string `json:"device_condition"`
}

// TradeInInput describes a device submitted for trade.
type TradeInInput struct {
	DeviceModel     string     `json:"device_model"`
	DeviceCondition string     `json:"device_condition"`
	PickupAddress   string     `json:"pickup_address,omitempty"`
	PickupDate      *time.Time `json:"pickup_date,omitempty"`
}

func (in TradeInInput) validate() error {
	var me MultiError
	if blank(in.DeviceModel) {
		me.Add(ValidationError{Field: "device_model", Message: "is required"})
	}
	if blank(in.DeviceCondition) {
		me.Add(ValidationError{Field: "device_condition", Message: "is required"})
	}
	return me.ErrOrNil()
}

func validatePatch(p hero.Patch) error {
	var me MultiError
	if p.Email != nil && blank(*p.Email) {
		me.Add(ValidationError{Field: "email", Message: "must not be blank"})
	}
	if p.Name != nil && blank(*p.Name) {
		me.Add(ValidationError{Field: "name", Message: "must not be blank"})
	}
	if p.DeviceModel != nil && blank(*p.DeviceModel) {
		me.Add(ValidationError{Field: "device_model", Message: "must not be blank"})
	}
	if p.TradeValue != nil && *p.TradeValue < 0 {
		me.Add(ValidationError{Field: "trade_value", Message: "must not be negative"})
	}
	if p.Points != nil && *p.Points < 0 {
		me.Add(ValidationError{Field: "points", Message: "must not be negative"})
	}
	return me.ErrOrNil()
}

func validateStatsPatch(p stats.Patch) error {
	var me MultiError
	for _, f := range []struct {
		name string
		v    *int64
	}{
		{"total_bottles_prevented", p.TotalBottlesPrevented},
		{"total_co2_saved", p.TotalCO2Saved},
		{"total_rewards", p.TotalRewards},
		{"active_heroes", p.ActiveHeroes},
	} {
		if f.v != nil && *f.v < 0 {
			me.Add(ValidationError{Field: f.name, Message: "must not be negative"})
		}
	}
	return me.ErrOrNil()
}
