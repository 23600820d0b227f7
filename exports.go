package heroes

import (
	"github.com/xraph/heroes/types"
	"github.com/xraph/heroes/valuation"
)

// Re-export common types for convenience so users don't have to import
// the types and valuation packages.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Tier is re-exported from valuation package.
type Tier = valuation.Tier

// Re-export Money constructors
var (
	USD    = types.USD
	Credit = types.Credit
)

// Re-export tiers and program constants
const (
	TierBronze     = valuation.TierBronze
	TierSilver     = valuation.TierSilver
	TierGold       = valuation.TierGold
	StartingPoints = valuation.StartingPoints
	ReferralBonus  = valuation.ReferralBonus
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
