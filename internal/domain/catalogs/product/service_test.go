package product_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/catalogs/product"
	"ledgercore/internal/domain/stock"
	"ledgercore/internal/infrastructure/storage/memory"
)

func newService(t *testing.T) (*product.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	ledger := stock.NewLedger(store.Stock(), stock.DefaultPolicy())
	svc := product.NewService(store.Products(), domain.CatalogServiceConfig[*product.Product]{TxManager: store}, ledger)
	return svc, store
}

func sku(s string) *string { return &s }

func TestCreateWithStock_BooksOpeningMovement(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	tenant := id.New()

	p := product.NewProduct(tenant, "  Widget  ")
	p.SKU = sku("W-1")
	p.SalePrice = types.MustMoney("12.50")

	require.NoError(t, svc.CreateWithStock(ctx, p, 15, nil))
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, int64(15), p.Stock)
	assert.Equal(t, 2, p.Version, "the opening movement bumps the row version")

	got, err := svc.GetByID(ctx, tenant, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), got.Stock)
	assert.Equal(t, product.DefaultUnitOfMeasure, got.UnitOfMeasure)

	movements, err := store.Stock().ListMovements(ctx, tenant, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, stock.SourceOpening, movements[0].Source)
	assert.Equal(t, int64(15), movements[0].StockAfter)
}

func TestCreateWithStock_Rejections(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	tenant := id.New()

	t.Run("negative opening stock", func(t *testing.T) {
		err := svc.CreateWithStock(ctx, product.NewProduct(tenant, "A"), -1, nil)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("missing name", func(t *testing.T) {
		err := svc.CreateWithStock(ctx, product.NewProduct(tenant, "   "), 0, nil)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("negative price", func(t *testing.T) {
		p := product.NewProduct(tenant, "B")
		p.PurchasePrice = types.MustMoney("-1")
		err := svc.CreateWithStock(ctx, p, 0, nil)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})
}

func TestSKUUniquePerTenant(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	tenant := id.New()

	first := product.NewProduct(tenant, "First")
	first.SKU = sku("DUP")
	require.NoError(t, svc.Create(ctx, first))

	second := product.NewProduct(tenant, "Second")
	second.SKU = sku("DUP")
	err := svc.Create(ctx, second)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	// Same SKU in another tenant is fine.
	other := product.NewProduct(id.New(), "Other")
	other.SKU = sku("DUP")
	assert.NoError(t, svc.Create(ctx, other))

	// Updating a product keeps its own SKU.
	first.Name = "Renamed"
	assert.NoError(t, svc.Update(ctx, first))
}

func TestUpdateNeverTouchesStock(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	tenant := id.New()

	p := product.NewProduct(tenant, "Bolt")
	require.NoError(t, svc.CreateWithStock(ctx, p, 8, nil))

	loaded, err := svc.GetByID(ctx, tenant, p.ID)
	require.NoError(t, err)
	loaded.Stock = 1000
	loaded.SalePrice = types.MustMoney("3.30")
	require.NoError(t, svc.Update(ctx, loaded))
	assert.Equal(t, int64(8), loaded.Stock)

	got, err := svc.GetByID(ctx, tenant, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.Stock)
	assert.Equal(t, "3.30", got.SalePrice.StringFixed(2))

	// The copy loaded before the update is stale now.
	stale := *loaded
	stale.Version--
	err = svc.Update(ctx, &stale)
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestGetByID_OtherTenant(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p := product.NewProduct(id.New(), "Hidden")
	require.NoError(t, svc.Create(ctx, p))

	_, err := svc.GetByID(ctx, id.New(), p.ID)
	assert.True(t, apperror.IsNotFound(err))

	err = svc.SetActive(ctx, id.New(), p.ID, false)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSetActive(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	tenant := id.New()

	p := product.NewProduct(tenant, "Seasonal")
	require.NoError(t, svc.Create(ctx, p))
	require.NoError(t, svc.SetActive(ctx, tenant, p.ID, false))

	got, err := svc.GetByID(ctx, tenant, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	found, err := svc.FindByIDs(ctx, tenant, []id.ID{p.ID, id.New()})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
