// Package types provides the exact numeric types used by the ledger.
package types

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for monetary values.
const MoneyScale int32 = 2

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds to MoneyScale places, half away from zero.
// For the non-negative amounts the ledger stores this is round-half-up.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// Quantity is a signed whole number of stock units.
type Quantity = int64

// AbsQuantity returns |q|.
func AbsQuantity(q Quantity) Quantity {
	if q < 0 {
		return -q
	}
	return q
}
