// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
// Every query is scoped to a tenant; a row of another tenant is reported as missing.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain"
	"ledgercore/internal/infrastructure/storage/postgres"
)

// BaseCatalogRepo provides common CRUD operations for catalog entities.
// Embed this in specific catalog repositories.
type BaseCatalogRepo[T domain.Entity] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	// readOnlyCols are inserted but never written by Update.
	readOnlyCols map[string]bool
	newFn        func() T
}

// NewBaseCatalogRepo creates a new base catalog repository.
func NewBaseCatalogRepo[T domain.Entity](
	txManager *postgres.TxManager,
	tableName, entityName string,
	selectCols []string,
	newFn func() T,
	readOnlyCols ...string,
) *BaseCatalogRepo[T] {
	ro := map[string]bool{"id": true, "tenant_id": true, "version": true, "created_at": true, "updated_at": true}
	for _, c := range readOnlyCols {
		ro[c] = true
	}
	return &BaseCatalogRepo[T]{
		txManager:    txManager,
		tableName:    tableName,
		entityName:   entityName,
		selectCols:   selectCols,
		readOnlyCols: ro,
		newFn:        newFn,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseCatalogRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseCatalogRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// columns filters the "db" tags of entity down to the table's columns.
func (r *BaseCatalogRepo[T]) columns(entity T, skip map[string]bool) map[string]any {
	data := postgres.StructToMap(entity)
	out := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if skip[col] {
			continue
		}
		if val, ok := data[col]; ok {
			out[col] = val
		}
	}
	return out
}

// Create inserts a new entity using its "db" tags.
func (r *BaseCatalogRepo[T]) Create(ctx context.Context, entity T) error {
	sql, args, err := r.Builder().
		Insert(r.tableName).
		SetMap(r.columns(entity, nil)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert %s: %w", r.tableName, err), r.entityName)
	}
	return nil
}

// Update writes every mutable column when the stored version still matches,
// then stamps entity with the new version and update time.
func (r *BaseCatalogRepo[T]) Update(ctx context.Context, entity T) error {
	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(r.columns(entity, r.readOnlyCols)).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{
			"id":        entity.GetID(),
			"tenant_id": entity.GetTenantID(),
			"version":   entity.GetVersion(),
		}).
		Suffix("RETURNING version, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	var (
		version   int
		updatedAt time.Time
	)
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&version, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missingOrStale(ctx, entity.GetTenantID(), entity.GetID())
		}
		return postgres.MapError(fmt.Errorf("update %s: %w", r.tableName, err), r.entityName)
	}
	entity.SetStamp(version, updatedAt)
	return nil
}

// GetByID retrieves an entity of tenantID.
func (r *BaseCatalogRepo[T]) GetByID(ctx context.Context, tenantID, entityID id.ID) (T, error) {
	q := r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"id": entityID, "tenant_id": tenantID}).
		Limit(1)
	return r.FindOne(ctx, q, entityID)
}

// FindOne runs q and scans a single entity.
func (r *BaseCatalogRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, entityID id.ID) (T, error) {
	entity := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.entityName, entityID.String())
		}
		return entity, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return entity, nil
}

// SetActive flips is_active and bumps the version.
func (r *BaseCatalogRepo[T]) SetActive(ctx context.Context, tenantID, entityID id.ID, active bool) error {
	sql, args, err := r.Builder().
		Update(r.tableName).
		Set("is_active", active).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": entityID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set active %s: %w", r.tableName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

// ExistsWhere reports whether a row of tenantID other than excludeID matches pred.
func (r *BaseCatalogRepo[T]) ExistsWhere(ctx context.Context, tenantID, excludeID id.ID, pred squirrel.Sqlizer) (bool, error) {
	sql, args, err := r.Builder().
		Select("1").
		From(r.tableName).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(squirrel.NotEq{"id": excludeID}).
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", r.tableName, err)
	}
	return true, nil
}

// missingOrStale explains an UPDATE that matched no row.
func (r *BaseCatalogRepo[T]) missingOrStale(ctx context.Context, tenantID, entityID id.ID) error {
	exists, err := r.ExistsWhere(ctx, tenantID, id.Nil(), squirrel.Eq{"id": entityID})
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return apperror.NewConcurrentModification(r.entityName, entityID.String())
}
