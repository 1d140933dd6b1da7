// Package document_repo provides the PostgreSQL transaction repository:
// a header row in transactions and its lines in transaction_lines.
package document_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/transaction"
	"ledgercore/internal/infrastructure/storage/postgres"
)

const (
	headerTable = "transactions"
	linesTable  = "transaction_lines"
)

var (
	headerColumns = postgres.ExtractDBColumns[transaction.Transaction]()
	lineColumns   = postgres.ExtractDBColumns[transaction.Line]()
)

var _ transaction.Repository = (*TransactionRepo)(nil)

// TransactionRepo implements transaction.Repository.
type TransactionRepo struct {
	txManager *postgres.TxManager
}

// NewTransactionRepo creates a new transaction repository.
func NewTransactionRepo(txManager *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{txManager: txManager}
}

func (r *TransactionRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts the header and queues every line in one batch.
func (r *TransactionRepo) Create(ctx context.Context, t *transaction.Transaction) error {
	tx := r.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("create transaction requires transaction context")
	}

	header := postgres.StructToMap(t)
	values := make(map[string]any, len(headerColumns))
	for _, col := range headerColumns {
		values[col] = header[col]
	}
	sql, args, err := r.builder().Insert(headerTable).SetMap(values).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	batch := &pgx.Batch{}
	batch.Queue(sql, args...)

	for _, row := range postgres.Rows(t.Lines, lineColumns) {
		lineSQL, lineArgs, err := r.builder().Insert(linesTable).Columns(lineColumns...).Values(row...).ToSql()
		if err != nil {
			return fmt.Errorf("build line insert: %w", err)
		}
		batch.Queue(lineSQL, lineArgs...)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return postgres.MapError(fmt.Errorf("insert transaction: %w", err), "transaction")
		}
	}
	return nil
}

// GetByID loads a transaction of tenantID with its lines.
func (r *TransactionRepo) GetByID(ctx context.Context, tenantID, transactionID id.ID) (*transaction.Transaction, error) {
	return r.get(ctx, tenantID, transactionID, false)
}

// GetForUpdate loads a transaction and locks its header row.
func (r *TransactionRepo) GetForUpdate(ctx context.Context, tenantID, transactionID id.ID) (*transaction.Transaction, error) {
	return r.get(ctx, tenantID, transactionID, true)
}

func (r *TransactionRepo) get(ctx context.Context, tenantID, transactionID id.ID, forUpdate bool) (*transaction.Transaction, error) {
	q := r.builder().
		Select(headerColumns...).
		From(headerTable).
		Where(squirrel.Eq{"id": transactionID, "tenant_id": tenantID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)

	var t transaction.Transaction
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transaction", transactionID.String())
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	lineSQL, lineArgs, err := r.builder().
		Select(lineColumns...).
		From(linesTable).
		Where(squirrel.Eq{"transaction_id": transactionID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &t.Lines, lineSQL, lineArgs...); err != nil {
		return nil, fmt.Errorf("get transaction lines: %w", err)
	}

	return &t, nil
}

// UpdateHeader writes the mutable header fields under the version predicate.
func (r *TransactionRepo) UpdateHeader(ctx context.Context, t *transaction.Transaction) error {
	sql, args, err := r.builder().
		Update(headerTable).
		Set("status", t.Status).
		Set("reference_number", t.ReferenceNumber).
		Set("notes", t.Notes).
		Set("attributes", t.Attributes).
		Set("updated_at", t.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": t.ID, "tenant_id": t.TenantID, "version": t.Version}).
		Suffix("RETURNING version").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	var version int
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missingOrStale(ctx, t.TenantID, t.ID)
		}
		return fmt.Errorf("update transaction: %w", err)
	}
	t.Version = version
	return nil
}

func (r *TransactionRepo) missingOrStale(ctx context.Context, tenantID, transactionID id.ID) error {
	sql, args, err := r.builder().
		Select("1").
		Prefix("SELECT EXISTS (").
		From(headerTable).
		Where(squirrel.Eq{"id": transactionID, "tenant_id": tenantID}).
		Suffix(")").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	var exists bool
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return fmt.Errorf("check transaction: %w", err)
	}
	if !exists {
		return apperror.NewNotFound("transaction", transactionID.String())
	}
	return apperror.NewConcurrentModification("transaction", transactionID.String())
}
