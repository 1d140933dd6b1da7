package stock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/events"
	"ledgercore/internal/domain/stock"
)

func TestAdjustStock(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	svc := stock.NewService(f.store.Stock(), f.ledger, f.store, f.store.Outbox(), f.store.Audit())
	pid := f.product(t, f.tenant, 4)
	user := id.New()

	adj, err := svc.AdjustStock(context.Background(), stock.AdjustCommand{
		TenantID:  f.tenant,
		ProductID: pid,
		Delta:     -3,
		Reason:    "damaged in transit",
		UserID:    &user,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), adj.StockAfter)

	movements, err := svc.ListMovements(context.Background(), f.tenant, pid, 0)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "damaged in transit", movements[0].Reason)
	assert.Equal(t, stock.SourceAdjustment, movements[0].Source)
	assert.Equal(t, &user, movements[0].CreatedBy)

	evs := f.store.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.StockAdjusted, evs[0].Type)
	assert.Len(t, f.store.AuditEntries(), 1)
}

func TestAdjustStock_Rejections(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	svc := stock.NewService(f.store.Stock(), f.ledger, f.store, f.store.Outbox(), f.store.Audit())
	pid := f.product(t, f.tenant, 2)

	tests := []struct {
		name string
		cmd  stock.AdjustCommand
		code string
	}{
		{"zero delta", stock.AdjustCommand{TenantID: f.tenant, ProductID: pid, Delta: 0}, apperror.CodeInvalidQuantity},
		{"below zero", stock.AdjustCommand{TenantID: f.tenant, ProductID: pid, Delta: -3}, apperror.CodeInsufficientStock},
		{"other tenant", stock.AdjustCommand{TenantID: id.New(), ProductID: pid, Delta: 1}, apperror.CodeProductNotFound},
		{"missing tenant", stock.AdjustCommand{ProductID: pid, Delta: 1}, apperror.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AdjustStock(context.Background(), tt.cmd)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}

	assert.Equal(t, int64(2), f.stockOf(t, pid))
	assert.Empty(t, f.store.Events())
}

func TestGetStock_OtherTenantIsNotFound(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	svc := stock.NewService(f.store.Stock(), f.ledger, f.store, nil, nil)
	pid := f.product(t, f.tenant, 2)

	_, err := svc.GetStock(context.Background(), id.New(), pid)
	assert.True(t, apperror.IsNotFound(err))

	lvl, err := svc.GetStock(context.Background(), f.tenant, pid)
	require.NoError(t, err)
	assert.Equal(t, int64(2), lvl.Stock)
}
