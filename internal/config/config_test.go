package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/stock"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, 30*time.Second, cfg.Database.StatementTimeout)
	assert.Equal(t, "deny", cfg.Stock.Oversell)
	assert.True(t, cfg.Stock.RejectInactive)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.True(t, cfg.IsDevelopment())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("DATABASE_URL", ":memory:")
	t.Setenv("TX_MAX_ATTEMPTS", "3")
	t.Setenv("TX_RETRY_BASE_DELAY", "5ms")
	t.Setenv("STOCK_REJECT_INACTIVE", "false")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Millisecond, cfg.Retry.BaseDelay)
	assert.False(t, cfg.Stock.RejectInactive)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollInterval)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_MAX_CONNS", "many")
	t.Setenv("STOCK_OVERSELL", "sometimes")

	_, err := FromEnv()
	require.Error(t, err)
	for _, want := range []string{"DATABASE_DRIVER", "DB_MAX_CONNS", "STOCK_OVERSELL", "DATABASE_URL"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestStockPolicy(t *testing.T) {
	below := stock.Check{ProductID: id.New(), StockBefore: 1, Delta: -2, StockAfter: -1, Source: stock.SourceSale}

	tests := []struct {
		name    string
		cfg     Stock
		allowed bool
	}{
		{name: "deny", cfg: Stock{Oversell: "deny"}, allowed: false},
		{name: "allow", cfg: Stock{Oversell: "allow"}, allowed: true},
		{name: "expression wins", cfg: Stock{Oversell: "deny", GuardExpr: "stock_after >= -5"}, allowed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Stock: tt.cfg}
			p, err := c.StockPolicy()
			require.NoError(t, err)
			ok, err := p.Guard.Allow(below)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, ok)
		})
	}

	c := &Config{Stock: Stock{GuardExpr: "stock_after >="}}
	_, err := c.StockPolicy()
	assert.Error(t, err)
}
