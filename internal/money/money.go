// Package money holds the single rounding rule used at every monetary
// computation boundary. Line amounts, cart totals, discount amounts, and the
// gateway minor-unit conversion all go through these helpers so that totals
// foot to the cent.
package money

import "github.com/shopspring/decimal"

// Round rounds an amount to two decimal places using round-half-up semantics.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FloorZero clamps negative amounts to zero.
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// MinorUnits converts an amount to the gateway's integer minor-unit
// representation (cents). The amount is rounded first with the shared rule,
// so a grand total and its charged amount can never diverge.
func MinorUnits(d decimal.Decimal) int64 {
	return Round(d).Shift(2).IntPart()
}

// FromMinorUnits converts an integer cent amount back to a decimal.
func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.NewFromInt(v).Shift(-2)
}
