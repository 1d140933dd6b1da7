// Package register_repo provides the PostgreSQL stock register: locked stock
// levels on products and the stock_movements journal.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/stock"
	"ledgercore/internal/infrastructure/storage/postgres"
)

const movementsTable = "stock_movements"

var movementColumns = postgres.ExtractDBColumns[stock.Movement]()

var _ stock.Repository = (*StockRepo)(nil)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	copier    *postgres.BatchInserter
}

// NewStockRepo creates a new stock repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		copier:    postgres.NewBatchInserter(txManager),
	}
}

func (r *StockRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func levelSelect(b squirrel.StatementBuilderType) squirrel.SelectBuilder {
	return b.Select("id", "tenant_id", "sku", "stock", "is_active", "version").From("products")
}

// LockLevels locks the product rows in id order. Callers lock in the same
// order, so two batches touching the same products cannot deadlock.
func (r *StockRepo) LockLevels(ctx context.Context, tenantID id.ID, productIDs []id.ID) ([]stock.Level, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	sql, args, err := levelSelect(r.builder()).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productIDs}).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var levels []stock.Level
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &levels, sql, args...); err != nil {
		return nil, fmt.Errorf("lock stock levels: %w", err)
	}
	return levels, nil
}

// GetLevel reads a level without locking.
func (r *StockRepo) GetLevel(ctx context.Context, tenantID, productID id.ID) (stock.Level, error) {
	sql, args, err := levelSelect(r.builder()).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productID}).
		ToSql()
	if err != nil {
		return stock.Level{}, fmt.Errorf("build query: %w", err)
	}

	var level stock.Level
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return stock.Level{}, apperror.NewNotFound("product", productID.String())
		}
		return stock.Level{}, fmt.Errorf("get stock level: %w", err)
	}
	return level, nil
}

// SaveLevel writes the new stock under the version read by LockLevels.
func (r *StockRepo) SaveLevel(ctx context.Context, level stock.Level) error {
	sql, args, err := r.builder().
		Update("products").
		Set("stock", level.Stock).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": level.ProductID, "tenant_id": level.TenantID, "version": level.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("save stock level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("product", level.ProductID.String())
	}
	return nil
}

// AppendMovements copies the journal rows in one round trip.
func (r *StockRepo) AppendMovements(ctx context.Context, movements []stock.Movement) error {
	if _, err := r.copier.CopyFromSlice(ctx, movementsTable, movementColumns, postgres.Rows(movements, movementColumns)); err != nil {
		return fmt.Errorf("copy stock movements: %w", err)
	}
	return nil
}

// ListMovements returns the newest movements of a product first.
func (r *StockRepo) ListMovements(ctx context.Context, tenantID, productID id.ID, limit int) ([]stock.Movement, error) {
	q := r.builder().
		Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "product_id": productID}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []stock.Movement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	return out, nil
}
