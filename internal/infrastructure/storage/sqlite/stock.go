package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/stock"
)

var (
	levelColumns    = []string{"id", "tenant_id", "sku", "stock", "is_active", "version"}
	movementColumns = []string{"id", "tenant_id", "product_id", "delta", "stock_after", "source", "transaction_id", "reason", "created_by", "created_at"}
)

// StockRepo implements stock.Repository. SQLite has no row locks; the
// IMMEDIATE transaction already holds the database write lock.
type StockRepo struct{ s *Store }

// Stock returns the stock repository of s.
func (s *Store) Stock() *StockRepo { return &StockRepo{s: s} }

func (r *StockRepo) LockLevels(ctx context.Context, tenantID id.ID, productIDs []id.ID) ([]stock.Level, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	keys := make([]string, len(productIDs))
	for i, pid := range productIDs {
		keys[i] = pid.String()
	}
	query, args, err := r.s.builder().
		Select(levelColumns...).
		From("products").
		Where(squirrel.Eq{"tenant_id": tenantID, "id": keys}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var levels []stock.Level
	if err := sqlx.SelectContext(ctx, r.s.q(ctx), &levels, query, args...); err != nil {
		return nil, fmt.Errorf("lock stock levels: %w", err)
	}
	return levels, nil
}

func (r *StockRepo) GetLevel(ctx context.Context, tenantID, productID id.ID) (stock.Level, error) {
	query, args, err := r.s.builder().
		Select(levelColumns...).
		From("products").
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productID}).
		ToSql()
	if err != nil {
		return stock.Level{}, fmt.Errorf("build query: %w", err)
	}
	var lvl stock.Level
	if err := sqlx.GetContext(ctx, r.s.q(ctx), &lvl, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stock.Level{}, apperror.NewNotFound("product", productID.String())
		}
		return stock.Level{}, fmt.Errorf("get stock level: %w", err)
	}
	return lvl, nil
}

func (r *StockRepo) SaveLevel(ctx context.Context, lvl stock.Level) error {
	query, args, err := r.s.builder().
		Update("products").
		Set("stock", lvl.Stock).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", r.s.clock()).
		Where(squirrel.Eq{"id": lvl.ProductID, "tenant_id": lvl.TenantID, "version": lvl.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := r.s.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save stock level: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewConcurrentModification("product", lvl.ProductID.String())
	}
	return nil
}

// AppendMovements inserts all rows with one multi-row INSERT.
func (r *StockRepo) AppendMovements(ctx context.Context, movements []stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	query := namedInsert("stock_movements", movementColumns)
	if _, err := sqlx.NamedExecContext(ctx, r.s.q(ctx), query, movements); err != nil {
		return fmt.Errorf("insert stock movements: %w", err)
	}
	return nil
}

func (r *StockRepo) ListMovements(ctx context.Context, tenantID, productID id.ID, limit int) ([]stock.Movement, error) {
	q := r.s.builder().
		Select(movementColumns...).
		From("stock_movements").
		Where(squirrel.Eq{"tenant_id": tenantID, "product_id": productID}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []stock.Movement
	if err := sqlx.SelectContext(ctx, r.s.q(ctx), &out, query, args...); err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	return out, nil
}
