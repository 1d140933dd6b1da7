package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/domain/catalogs/product"
)

var (
	baseColumns = []string{"id", "tenant_id", "version", "attributes", "created_at", "updated_at"}

	productColumns  = []string{"sku", "name", "description", "purchase_price", "sale_price", "stock", "unit_of_measure", "category", "is_active"}
	clientColumns   = []string{"name", "tax_id", "email", "phone", "address", "is_active"}
	providerColumns = append(append([]string{}, clientColumns...), "contact_person")
)

// catalogTable is the generic CRUD shared by products, clients and providers.
type catalogTable[T domain.Entity] struct {
	s          *Store
	table      string
	entityName string
	columns    []string // every column, base first
	mutable    []string // columns Update writes
	newFn      func() T
}

func newCatalogTable[T domain.Entity](s *Store, table, entityName string, own []string, newFn func() T, readOnly ...string) catalogTable[T] {
	cols := append(append([]string{}, baseColumns...), own...)

	skip := map[string]bool{"id": true, "tenant_id": true, "version": true, "created_at": true, "updated_at": true}
	for _, c := range readOnly {
		skip[c] = true
	}
	mutable := make([]string, 0, len(cols))
	for _, c := range cols {
		if !skip[c] {
			mutable = append(mutable, c)
		}
	}

	return catalogTable[T]{s: s, table: table, entityName: entityName, columns: cols, mutable: mutable, newFn: newFn}
}

func (t catalogTable[T]) Create(ctx context.Context, entity T) error {
	query := namedInsert(t.table, t.columns)
	if _, err := sqlx.NamedExecContext(ctx, t.s.q(ctx), query, entity); err != nil {
		return MapError(fmt.Errorf("insert %s: %w", t.table, err), t.entityName)
	}
	return nil
}

// namedInsert renders INSERT INTO table (a, b) VALUES (:a, :b).
func namedInsert(table string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)",
		table, strings.Join(columns, ", "), strings.Join(columns, ", :"))
}

func (t catalogTable[T]) GetByID(ctx context.Context, tenantID, entityID id.ID) (T, error) {
	return t.findOne(ctx, t.selectQuery().Where(squirrel.Eq{"id": entityID, "tenant_id": tenantID}), entityID)
}

func (t catalogTable[T]) selectQuery() squirrel.SelectBuilder {
	return t.s.builder().Select(t.columns...).From(t.table)
}

func (t catalogTable[T]) findOne(ctx context.Context, q squirrel.SelectBuilder, entityID id.ID) (T, error) {
	entity := t.newFn()
	query, args, err := q.Limit(1).ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}
	if err := sqlx.GetContext(ctx, t.s.q(ctx), entity, query, args...); err != nil {
		var zero T
		if errors.Is(err, sql.ErrNoRows) {
			return zero, apperror.NewNotFound(t.entityName, entityID.String())
		}
		return zero, fmt.Errorf("get %s: %w", t.table, err)
	}
	return entity, nil
}

// Update writes the mutable columns read through sqlx's field mapper.
func (t catalogTable[T]) Update(ctx context.Context, entity T) error {
	fields := t.s.db.Mapper.FieldMap(reflect.ValueOf(entity))
	set := make(map[string]any, len(t.mutable))
	for _, c := range t.mutable {
		f, ok := fields[c]
		if !ok {
			return fmt.Errorf("%s: no field for column %s", t.table, c)
		}
		set[c] = f.Interface()
	}

	now := t.s.clock()
	query, args, err := t.s.builder().
		Update(t.table).
		SetMap(set).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": entity.GetID(), "tenant_id": entity.GetTenantID(), "version": entity.GetVersion()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := t.s.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return MapError(fmt.Errorf("update %s: %w", t.table, err), t.entityName)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return t.missingOrStale(ctx, entity.GetTenantID(), entity.GetID())
	}
	entity.SetStamp(entity.GetVersion()+1, now)
	return nil
}

func (t catalogTable[T]) SetActive(ctx context.Context, tenantID, entityID id.ID, active bool) error {
	query, args, err := t.s.builder().
		Update(t.table).
		Set("is_active", active).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", t.s.clock()).
		Where(squirrel.Eq{"id": entityID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := t.s.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set active %s: %w", t.table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound(t.entityName, entityID.String())
	}
	return nil
}

// existsWhere reports whether a row of tenantID other than excludeID matches pred.
func (t catalogTable[T]) existsWhere(ctx context.Context, tenantID, excludeID id.ID, pred squirrel.Sqlizer) (bool, error) {
	q := t.s.builder().Select("1").From(t.table).Where(squirrel.Eq{"tenant_id": tenantID}).Where(pred).Limit(1)
	if !id.IsNil(excludeID) {
		q = q.Where(squirrel.NotEq{"id": excludeID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	var one int
	if err := sqlx.GetContext(ctx, t.s.q(ctx), &one, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("exists %s: %w", t.table, err)
	}
	return true, nil
}

func (t catalogTable[T]) missingOrStale(ctx context.Context, tenantID, entityID id.ID) error {
	exists, err := t.existsWhere(ctx, tenantID, id.Nil(), squirrel.Eq{"id": entityID})
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NewNotFound(t.entityName, entityID.String())
	}
	return apperror.NewConcurrentModification(t.entityName, entityID.String())
}

// --- Products ---

// ProductRepo implements product.Repository. Stock is never written here.
type ProductRepo struct {
	catalogTable[*product.Product]
}

// Products returns the product repository of s.
func (s *Store) Products() *ProductRepo {
	return &ProductRepo{newCatalogTable(s, "products", "product", productColumns,
		func() *product.Product { return &product.Product{} }, "stock")}
}

// Update writes the catalog fields and reloads the current stock into p.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	if err := r.catalogTable.Update(ctx, p); err != nil {
		return err
	}
	query, args, err := r.s.builder().Select("stock").From("products").Where(squirrel.Eq{"id": p.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.GetContext(ctx, r.s.q(ctx), &p.Stock, query, args...)
}

func (r *ProductRepo) FindByIDs(ctx context.Context, tenantID id.ID, ids []id.ID) ([]*product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, pid := range ids {
		keys[i] = pid.String()
	}
	query, args, err := r.selectQuery().
		Where(squirrel.Eq{"tenant_id": tenantID, "id": keys}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []*product.Product
	if err := sqlx.SelectContext(ctx, r.s.q(ctx), &out, query, args...); err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return out, nil
}

func (r *ProductRepo) ExistsBySKU(ctx context.Context, tenantID id.ID, sku string, excludeID id.ID) (bool, error) {
	return r.existsWhere(ctx, tenantID, excludeID, squirrel.Eq{"sku": sku})
}

// --- Counterparties ---

// ClientRepo implements counterparty.ClientRepository.
type ClientRepo struct {
	catalogTable[*counterparty.Client]
}

// Clients returns the client repository of s.
func (s *Store) Clients() *ClientRepo {
	return &ClientRepo{newCatalogTable(s, "clients", "client", clientColumns,
		func() *counterparty.Client { return &counterparty.Client{} })}
}

// ProviderRepo implements counterparty.ProviderRepository.
type ProviderRepo struct {
	catalogTable[*counterparty.Provider]
}

// Providers returns the provider repository of s.
func (s *Store) Providers() *ProviderRepo {
	return &ProviderRepo{newCatalogTable(s, "providers", "provider", providerColumns,
		func() *counterparty.Provider { return &counterparty.Provider{} })}
}

func (r *ProviderRepo) ExistsByTaxID(ctx context.Context, tenantID id.ID, taxID string, excludeID id.ID) (bool, error) {
	return r.existsWhere(ctx, tenantID, excludeID, squirrel.Eq{"tax_id": taxID})
}
