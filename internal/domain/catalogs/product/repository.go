package product

import (
	"context"

	"ledgercore/internal/core/id"
	"ledgercore/internal/domain"
)

// Repository defines the interface for Product persistence.
// Update never writes the stock column.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindByIDs returns the products of tenantID among ids. Unknown ids and
	// ids of other tenants are omitted.
	FindByIDs(ctx context.Context, tenantID id.ID, ids []id.ID) ([]*Product, error)

	// ExistsBySKU reports whether another product of tenantID uses sku.
	ExistsBySKU(ctx context.Context, tenantID id.ID, sku string, excludeID id.ID) (bool, error)
}
