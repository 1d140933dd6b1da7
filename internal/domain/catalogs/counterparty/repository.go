package counterparty

import (
	"context"

	"ledgercore/internal/core/id"
	"ledgercore/internal/domain"
)

// ClientRepository persists clients.
type ClientRepository interface {
	domain.CatalogRepository[*Client]
}

// ProviderRepository persists providers.
type ProviderRepository interface {
	domain.CatalogRepository[*Provider]

	// ExistsByTaxID reports whether another provider of tenantID uses taxID.
	ExistsByTaxID(ctx context.Context, tenantID id.ID, taxID string, excludeID id.ID) (bool, error)
}
