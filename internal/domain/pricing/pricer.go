// Package pricing computes line subtotals and transaction totals.
// All arithmetic is exact decimal; rounding happens once per line.
package pricing

import (
	"github.com/shopspring/decimal"

	"ledgercore/internal/core/types"
)

// Line is the priced part of a transaction line.
type Line struct {
	UnitPrice types.Money
	Quantity  types.Quantity
}

// Subtotal returns unitPrice × |quantity| rounded half-up to two places.
// The quantity sign carries stock direction only, so the result is never negative
// for a non-negative price.
func Subtotal(unitPrice types.Money, quantity types.Quantity) types.Money {
	qty := decimal.NewFromInt(types.AbsQuantity(quantity))
	return types.RoundMoney(unitPrice.Mul(qty))
}

// Total sums the subtotals of lines in order.
func Total(lines []Line) types.Money {
	total := types.Zero()
	for _, l := range lines {
		total = total.Add(Subtotal(l.UnitPrice, l.Quantity))
	}
	return total
}

// SumSubtotals adds already computed subtotals without re-rounding.
func SumSubtotals(subtotals ...types.Money) types.Money {
	total := types.Zero()
	for _, s := range subtotals {
		total = total.Add(s)
	}
	return total
}
