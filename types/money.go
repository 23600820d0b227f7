package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultCurrency is the currency trade-in credit is issued in.
const DefaultCurrency = "usd"

// Money represents a monetary value in the smallest currency unit.
// Amounts are integers, never floating point.
//
// Trade values are tracked in whole units on the ledger; Money is used
// where credit is displayed or handed to a payment collaborator.
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (cents, pence, etc)
	Currency string `json:"currency"` // ISO 4217 lowercase: "usd", "eur", "gbp"
}

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// Credit converts a whole-unit trade value into Money in DefaultCurrency.
func Credit(units int64) Money { return USD(units * 100) }

// FormatMajor returns the major unit string without currency symbol,
// e.g. "765.00" for USD(76500).
func (m Money) FormatMajor() string {
	abs := m.Amount
	sign := ""
	if abs < 0 {
		abs = -abs
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%02d", sign, abs/100, abs%100)
}

// String returns a human-readable string with currency symbol.
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

func currencySymbol(currency string) string {
	switch strings.ToLower(currency) {
	case "usd":
		return "$"
	case "eur":
		return "€"
	case "gbp":
		return "£"
	}
	return strings.ToUpper(currency) + " "
}
