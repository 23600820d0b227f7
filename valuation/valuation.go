// Package valuation turns a device description into a trade value, an
// environmental impact and a points preview.
//
// Everything here is a pure function of its arguments: the tables are fixed
// at build time and nothing reads or writes ledger state, so the quote path
// can call it freely.
package valuation

import (
	"sort"

	"github.com/xraph/heroes/types"
)

// Condition is the self-reported state of a device.
type Condition string

// The closed set of condition labels.
const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

// DefaultBaseValue is the base value of a model missing from the table.
const DefaultBaseValue int64 = 300

// Condition multipliers in percent. Integer percentages keep
// base*multiplier exact so the floor never suffers float error.
var conditionPercent = map[Condition]int64{
	ConditionExcellent: 100,
	ConditionGood:      85,
	ConditionFair:      65,
	ConditionPoor:      40,
}

// Base values in whole currency units, keyed by exact model string.
var baseValues = map[string]int64{
	"iPhone 15 Pro Max":  1200,
	"iPhone 15 Pro":      1100,
	"iPhone 15":          1000,
	"iPhone 14 Pro":      1000,
	"iPhone 14":          950,
	"iPhone 13":          900,
	"iPhone 12":          700,
	"iPhone 11":          500,
	"Samsung Galaxy S24": 1000,
	"Samsung Galaxy S23": 850,
	"Google Pixel 8":     800,
	"Google Pixel 7":     600,
}

// ParseCondition matches a condition label exactly, the same way models are
// matched. Anything outside the closed set, including other casings or
// surrounding space, maps to ConditionPoor and ok reports false.
func ParseCondition(s string) (c Condition, ok bool) {
	c = Condition(s)
	if !c.Valid() {
		return ConditionPoor, false
	}
	return c, true
}

// Valid reports whether c is one of the known labels.
func (c Condition) Valid() bool {
	_, ok := conditionPercent[c]
	return ok
}

// BaseValue returns the base value for model and whether the model is known.
func BaseValue(model string) (int64, bool) {
	if v, ok := baseValues[model]; ok {
		return v, true
	}
	return DefaultBaseValue, false
}

// Multiplier returns the condition multiplier as a fraction (0.85 for good).
func Multiplier(condition string) float64 {
	c, _ := ParseCondition(condition)
	return float64(conditionPercent[c]) / 100
}

// TradeValue is floor(BaseValue(model) * Multiplier(condition)).
func TradeValue(model, condition string) int64 {
	base, _ := BaseValue(model)
	c, _ := ParseCondition(condition)
	return base * conditionPercent[c] / 100
}

// Models lists the known models in lexical order.
func Models() []string {
	out := make([]string, 0, len(baseValues))
	for m := range baseValues {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Quote is a side-effect free preview of what registering with a device yields.
type Quote struct {
	Model            string      `json:"model"`
	KnownModel       bool        `json:"known_model"`
	Condition        Condition   `json:"condition"`
	KnownCondition   bool        `json:"known_condition"`
	BaseValue        int64       `json:"base_value"`
	Multiplier       float64     `json:"multiplier"`
	TradeValue       int64       `json:"trade_value"`
	Credit           types.Money `json:"credit"`
	BottlesPrevented int64       `json:"bottles_prevented"`
	CO2Saved         int64       `json:"co2_saved"`
	Points           int64       `json:"points"`
	Tier             Tier        `json:"tier"`
}

// NewQuote prices a device for registration.
func NewQuote(model, condition string) Quote {
	base, knownModel := BaseValue(model)
	c, knownCondition := ParseCondition(condition)
	tv := TradeValue(model, condition)
	impact := ImpactOf(tv)

	return Quote{
		Model:            model,
		KnownModel:       knownModel,
		Condition:        c,
		KnownCondition:   knownCondition,
		BaseValue:        base,
		Multiplier:       Multiplier(condition),
		TradeValue:       tv,
		Credit:           types.Credit(tv),
		BottlesPrevented: impact.BottlesPrevented,
		CO2Saved:         impact.CO2Saved,
		Points:           StartingPoints,
		Tier:             TierFor(StartingPoints),
	}
}
