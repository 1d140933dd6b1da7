package counterparty_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/infrastructure/storage/memory"
)

func str(s string) *string { return &s }

func TestClientService(t *testing.T) {
	store := memory.New()
	svc := counterparty.NewClientService(store.Clients(), domain.CatalogServiceConfig[*counterparty.Client]{TxManager: store})
	ctx := context.Background()
	tenant := id.New()

	c := counterparty.NewClient(tenant, " Jane Buyer ")
	c.Email = str("jane@example.com")
	require.NoError(t, svc.Create(ctx, c))
	assert.Equal(t, "Jane Buyer", c.Name)

	bad := counterparty.NewClient(tenant, "No Mail")
	bad.Email = str("not-an-email")
	err := svc.Create(ctx, bad)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	require.NoError(t, svc.SetActive(ctx, tenant, c.ID, false))
	got, err := svc.GetByID(ctx, tenant, c.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = svc.GetByID(ctx, id.New(), c.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestProviderService_TaxIDUnique(t *testing.T) {
	store := memory.New()
	svc := counterparty.NewProviderService(store.Providers(), domain.CatalogServiceConfig[*counterparty.Provider]{TxManager: store})
	ctx := context.Background()
	tenant := id.New()

	first := counterparty.NewProvider(tenant, "Mills Inc")
	first.TaxID = str("B-1234")
	require.NoError(t, svc.Create(ctx, first))

	second := counterparty.NewProvider(tenant, "Mills Copy")
	second.TaxID = str(" B-1234 ")
	err := svc.Create(ctx, second)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	elsewhere := counterparty.NewProvider(id.New(), "Mills Abroad")
	elsewhere.TaxID = str("B-1234")
	assert.NoError(t, svc.Create(ctx, elsewhere))

	first.ContactPerson = str("Ana")
	require.NoError(t, svc.Update(ctx, first))
	got, err := svc.GetByID(ctx, tenant, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", *got.ContactPerson)
}

func TestProviderIsNotAClient(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	tenant := id.New()

	p := counterparty.NewProvider(tenant, "Supplier")
	require.NoError(t, store.Providers().Create(ctx, p))

	_, err := store.Clients().GetByID(ctx, tenant, p.ID)
	assert.True(t, apperror.IsNotFound(err))
}
