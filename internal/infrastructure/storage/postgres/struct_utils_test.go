package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/domain/stock"
)

func TestExtractDBColumns_NestedEmbedding(t *testing.T) {
	cols := ExtractDBColumns[counterparty.Provider]()

	for _, expected := range []string{
		"id", "tenant_id", "version", "attributes", "created_at", "updated_at",
		"name", "tax_id", "email", "phone", "address", "is_active", "contact_person",
	} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	tax := "B-77"
	p := counterparty.Provider{
		Counterparty: counterparty.Counterparty{
			BaseEntity: entity.BaseEntity{
				ID:         id.New(),
				TenantID:   id.New(),
				Version:    5,
				Attributes: entity.Attributes{"tier": "gold"},
				CreatedAt:  now,
			},
			Name:     "Mills",
			TaxID:    &tax,
			IsActive: true,
		},
	}

	m := StructToMap(&p)

	assert.Equal(t, p.ID, m["id"])
	assert.Equal(t, p.TenantID, m["tenant_id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, &tax, m["tax_id"])
	assert.Equal(t, "Mills", m["name"])
	assert.Equal(t, true, m["is_active"])
	assert.Equal(t, now, m["created_at"])
	assert.Nil(t, StructToMap(42))
}

func TestRows_FollowsColumnOrder(t *testing.T) {
	txID := id.New()
	movements := []stock.Movement{
		{ID: id.New(), ProductID: id.New(), Delta: -3, StockAfter: 7, Source: stock.SourceSale, TransactionID: &txID},
		{ID: id.New(), ProductID: id.New(), Delta: 5, StockAfter: 5, Source: stock.SourceAdjustment, Reason: "recount"},
	}

	rows := Rows(movements, []string{"delta", "source", "reason"})

	assert.Equal(t, [][]any{
		{int64(-3), stock.SourceSale, ""},
		{int64(5), stock.SourceAdjustment, "recount"},
	}, rows)
}
