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
	"ledgercore/internal/domain/transaction"
)

var (
	headerColumns = append(append([]string{}, baseColumns...),
		"type", "client_id", "provider_id", "transaction_date", "reference_number",
		"total_amount", "notes", "status", "created_by")
	lineColumns = []string{"id", "transaction_id", "line_no", "product_id", "quantity", "unit_price", "subtotal", "attributes"}
)

// TransactionRepo implements transaction.Repository.
type TransactionRepo struct{ s *Store }

// Transactions returns the transaction repository of s.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

func (r *TransactionRepo) Create(ctx context.Context, t *transaction.Transaction) error {
	if r.s.getTx(ctx) == nil {
		return fmt.Errorf("create transaction requires transaction context")
	}
	q := r.s.q(ctx)
	if _, err := sqlx.NamedExecContext(ctx, q, namedInsert("transactions", headerColumns), t); err != nil {
		return MapError(fmt.Errorf("insert transaction: %w", err), "transaction")
	}
	if len(t.Lines) == 0 {
		return nil
	}
	if _, err := sqlx.NamedExecContext(ctx, q, namedInsert("transaction_lines", lineColumns), t.Lines); err != nil {
		return MapError(fmt.Errorf("insert transaction lines: %w", err), "transaction")
	}
	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, tenantID, transactionID id.ID) (*transaction.Transaction, error) {
	query, args, err := r.s.builder().
		Select(headerColumns...).
		From("transactions").
		Where(squirrel.Eq{"id": transactionID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	q := r.s.q(ctx)
	var t transaction.Transaction
	if err := sqlx.GetContext(ctx, q, &t, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("transaction", transactionID.String())
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	query, args, err = r.s.builder().
		Select(lineColumns...).
		From("transaction_lines").
		Where(squirrel.Eq{"transaction_id": transactionID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := sqlx.SelectContext(ctx, q, &t.Lines, query, args...); err != nil {
		return nil, fmt.Errorf("get transaction lines: %w", err)
	}
	return &t, nil
}

// GetForUpdate is GetByID; the IMMEDIATE transaction already excludes other writers.
func (r *TransactionRepo) GetForUpdate(ctx context.Context, tenantID, transactionID id.ID) (*transaction.Transaction, error) {
	return r.GetByID(ctx, tenantID, transactionID)
}

func (r *TransactionRepo) UpdateHeader(ctx context.Context, t *transaction.Transaction) error {
	query, args, err := r.s.builder().
		Update("transactions").
		Set("status", t.Status).
		Set("reference_number", t.ReferenceNumber).
		Set("notes", t.Notes).
		Set("attributes", t.Attributes).
		Set("updated_at", t.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": t.ID, "tenant_id": t.TenantID, "version": t.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.s.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		t.Version++
		return nil
	}

	if _, err := r.GetByID(ctx, t.TenantID, t.ID); err != nil {
		return err
	}
	return apperror.NewConcurrentModification("transaction", t.ID.String())
}
