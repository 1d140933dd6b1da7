package stock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/stock"
)

func check(before, delta int64) stock.Check {
	return stock.Check{
		ProductID:   id.New(),
		SKU:         "SKU-1",
		StockBefore: before,
		Delta:       delta,
		StockAfter:  before + delta,
		Source:      stock.SourceSale,
	}
}

func TestDenyOversell(t *testing.T) {
	g := stock.DenyOversell()

	tests := []struct {
		name    string
		before  int64
		delta   int64
		allowed bool
	}{
		{"sale within stock", 10, -3, true},
		{"sale of last unit", 1, -1, true},
		{"sale beyond stock", 1, -2, false},
		{"purchase while negative", -5, 2, true},
		{"sale while already negative", -1, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := g.Allow(check(tt.before, tt.delta))
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, ok)
		})
	}
}

func TestAllowOversell(t *testing.T) {
	ok, err := stock.AllowOversell().Allow(check(0, -100))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewGuard_CustomExpression(t *testing.T) {
	g, err := stock.NewGuard(`stock_after >= -5 || source == "CANCELLATION"`)
	require.NoError(t, err)

	ok, err := g.Allow(check(0, -5))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Allow(check(0, -6))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewGuard_RejectsInvalidExpressions(t *testing.T) {
	_, err := stock.NewGuard("stock_after >=")
	assert.Error(t, err)

	_, err = stock.NewGuard("stock_after + 1")
	assert.Error(t, err, "non-bool expressions are rejected")

	_, err = stock.NewGuard("unknown_var > 0")
	assert.Error(t, err)
}
