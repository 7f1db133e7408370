package utils

import (
	"github.com/shopspring/decimal"
)

// NormalizeAmount rounds a monetary amount to 2 decimal places (minor units).
// All amounts entering the engine pass through this once, so downstream
// arithmetic and comparisons stay exact.
func NormalizeAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Shortfall returns max(0, expected - paid).
func Shortfall(expected, paid decimal.Decimal) decimal.Decimal {
	remaining := expected.Sub(paid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// MinAmount returns the smaller of two amounts.
func MinAmount(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Ratio returns numerator/denominator rounded to 4 places, or zero when the
// denominator is zero.
func Ratio(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return numerator.DivRound(denominator, 4)
}
