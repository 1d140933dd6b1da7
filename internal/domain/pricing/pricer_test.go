package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/pricing"
)

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		qty      int64
		expected string
	}{
		{"whole units", "25.00", 3, "75.00"},
		{"negative quantity keeps sign out of amount", "10.00", -2, "20.00"},
		{"zero price", "0", 7, "0.00"},
		{"half rounds up", "0.125", 1, "0.13"},
		{"below half rounds down", "0.124", 1, "0.12"},
		{"sub-cent price accumulates before rounding", "0.3333", 3, "1.00"},
		{"large values stay exact", "99999999.99", 1000, "99999999990.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.Subtotal(types.MustMoney(tt.price), tt.qty)
			assert.Equal(t, tt.expected, got.StringFixed(2))
			assert.False(t, got.IsNegative())
		})
	}
}

func TestTotal_SumsExactSubtotals(t *testing.T) {
	lines := []pricing.Line{
		{UnitPrice: types.MustMoney("0.10"), Quantity: 1},
		{UnitPrice: types.MustMoney("0.20"), Quantity: 1},
		{UnitPrice: types.MustMoney("19.99"), Quantity: 3},
	}

	total := pricing.Total(lines)

	assert.Equal(t, "60.27", total.StringFixed(2))
	assert.True(t, total.Equal(types.MustMoney("60.27")))
}

func TestTotal_Empty(t *testing.T) {
	assert.True(t, pricing.Total(nil).IsZero())
}

func TestSumSubtotals_MatchesTotal(t *testing.T) {
	lines := []pricing.Line{
		{UnitPrice: types.MustMoney("1.005"), Quantity: 1},
		{UnitPrice: types.MustMoney("2.675"), Quantity: 2},
	}

	subtotals := make([]types.Money, len(lines))
	for i, l := range lines {
		subtotals[i] = pricing.Subtotal(l.UnitPrice, l.Quantity)
	}

	assert.True(t, pricing.Total(lines).Equal(pricing.SumSubtotals(subtotals...)))
}
