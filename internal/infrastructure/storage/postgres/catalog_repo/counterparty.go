package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/infrastructure/storage/postgres"
)

const (
	clientTable   = "clients"
	providerTable = "providers"
)

var (
	_ counterparty.ClientRepository   = (*ClientRepo)(nil)
	_ counterparty.ProviderRepository = (*ProviderRepo)(nil)
)

// ClientRepo implements counterparty.ClientRepository.
type ClientRepo struct {
	*BaseCatalogRepo[*counterparty.Client]
}

// NewClientRepo creates a new client repository.
func NewClientRepo(txManager *postgres.TxManager) *ClientRepo {
	return &ClientRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*counterparty.Client](
			txManager,
			clientTable, "client",
			postgres.ExtractDBColumns[counterparty.Client](),
			func() *counterparty.Client { return &counterparty.Client{} },
		),
	}
}

// ProviderRepo implements counterparty.ProviderRepository.
type ProviderRepo struct {
	*BaseCatalogRepo[*counterparty.Provider]
}

// NewProviderRepo creates a new provider repository.
func NewProviderRepo(txManager *postgres.TxManager) *ProviderRepo {
	return &ProviderRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*counterparty.Provider](
			txManager,
			providerTable, "provider",
			postgres.ExtractDBColumns[counterparty.Provider](),
			func() *counterparty.Provider { return &counterparty.Provider{} },
		),
	}
}

// ExistsByTaxID reports whether another provider of tenantID uses taxID.
func (r *ProviderRepo) ExistsByTaxID(ctx context.Context, tenantID id.ID, taxID string, excludeID id.ID) (bool, error) {
	return r.ExistsWhere(ctx, tenantID, excludeID, squirrel.Eq{"tax_id": taxID})
}
