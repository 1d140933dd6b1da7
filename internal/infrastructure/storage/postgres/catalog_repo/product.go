package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/catalogs/product"
	"ledgercore/internal/infrastructure/storage/postgres"
)

const productTable = "products"

var _ product.Repository = (*ProductRepo)(nil)

// ProductRepo implements product.Repository. The stock column is written
// only by the stock register.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*product.Product](
			txManager,
			productTable, "product",
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
			"stock",
		),
	}
}

// Update writes the catalog fields and reloads the stock the ledger owns.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	if err := r.BaseCatalogRepo.Update(ctx, p); err != nil {
		return err
	}
	return r.querier(ctx).QueryRow(ctx,
		`SELECT stock FROM products WHERE id = $1 AND tenant_id = $2`, p.ID, p.TenantID,
	).Scan(&p.Stock)
}

// FindByIDs returns the products of tenantID among ids, in id order.
func (r *ProductRepo) FindByIDs(ctx context.Context, tenantID id.ID, ids []id.ID) ([]*product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	sql, args, err := r.Builder().
		Select(r.selectCols...).
		From(productTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": ids}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*product.Product
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return out, nil
}

// ExistsBySKU reports whether another product of tenantID uses sku.
func (r *ProductRepo) ExistsBySKU(ctx context.Context, tenantID id.ID, sku string, excludeID id.ID) (bool, error) {
	return r.ExistsWhere(ctx, tenantID, excludeID, squirrel.Eq{"sku": sku})
}
