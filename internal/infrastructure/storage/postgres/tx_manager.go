package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ledgercore/internal/core/tx"
	"ledgercore/pkg/logger"
)

var tracer = otel.Tracer("ledgercore/tx")

// Compile-time check that TxManager implements tx.Manager interface.
var _ tx.ReadOnlyManager = (*TxManager)(nil)

// TxOptions configures a top-level transaction. Nested calls always join
// the outer transaction.
type TxOptions struct {
	IsolationLevel pgx.TxIsoLevel
	AccessMode     pgx.TxAccessMode

	// StatementTimeout is applied with SET LOCAL; zero leaves the server default.
	StatementTimeout time.Duration
}

// DefaultTxOptions returns the options used for ledger writes. Stock checks
// read-then-write, so anything weaker than SERIALIZABLE needs explicit locks
// everywhere; the repositories take them anyway.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.Serializable,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
	}
}

// TxManager runs ledger writes in pgx transactions carried by the context.
// Top-level transactions are traced and retried on serialization failures,
// deadlocks and version conflicts.
type TxManager struct {
	pool  *pgxpool.Pool
	opts  TxOptions
	retry tx.RetryPolicy
}

// NewTxManager creates a transaction manager on pool.
func NewTxManager(pool *Pool) *TxManager {
	return &TxManager{
		pool:  pool.Pool,
		opts:  DefaultTxOptions(),
		retry: tx.DefaultRetryPolicy(),
	}
}

// WithOptions replaces the default transaction options.
func (m *TxManager) WithOptions(opts TxOptions) *TxManager {
	m.opts = opts
	return m
}

// WithRetryPolicy replaces the retry policy.
func (m *TxManager) WithRetryPolicy(p tx.RetryPolicy) *TxManager {
	m.retry = p
	return m
}

// txKey is the context key for active transaction.
type txKey struct{}

// Tx wraps pgx.Tx with metadata.
type Tx struct {
	pgx.Tx
}

// RunInTransaction implements tx.Manager.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransactionWithOptions(ctx, m.opts, fn)
}

// RunInTransactionWithOptions is RunInTransaction with opts for a new
// transaction. Inside an open transaction fn just runs on it.
func (m *TxManager) RunInTransactionWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	if m.GetTx(ctx) != nil {
		return fn(ctx)
	}

	attempt := 0
	return tx.Retry(ctx, m.retry, IsTransient,
		func(n int, err error) {
			logger.Warn(ctx, "transaction retry", "attempt", n, "error", err)
		},
		func(ctx context.Context) error {
			attempt++
			return m.startNewTransaction(ctx, opts, attempt, fn)
		})
}

// startNewTransaction runs one attempt.
func (m *TxManager) startNewTransaction(ctx context.Context, opts TxOptions, attempt int, fn func(ctx context.Context) error) (err error) {
	ctx, span := tracer.Start(ctx, "db.transaction",
		trace.WithAttributes(
			attribute.String("tx.isolation", string(opts.IsolationLevel)),
			attribute.String("tx.access_mode", string(opts.AccessMode)),
			attribute.Int("tx.attempt", attempt),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	pgTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsolationLevel,
		AccessMode: opts.AccessMode,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if opts.StatementTimeout > 0 {
		_, err = pgTx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", opts.StatementTimeout.Milliseconds()))
		if err != nil {
			_ = pgTx.Rollback(context.Background())
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	txCtx := context.WithValue(ctx, txKey{}, &Tx{Tx: pgTx})

	if err := m.executeWithRollbackProtection(txCtx, pgTx, fn); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// executeWithRollbackProtection rolls back when fn fails. The rollback uses a
// fresh context so it completes after ctx is cancelled.
func (m *TxManager) executeWithRollbackProtection(ctx context.Context, pgTx pgx.Tx, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		if rbErr := pgTx.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}
	return nil
}

// GetTx returns the current transaction from context, or nil if none.
func (m *TxManager) GetTx(ctx context.Context) *Tx {
	if t, ok := ctx.Value(txKey{}).(*Tx); ok {
		return t
	}
	return nil
}

// Querier is satisfied by both the pool and an open transaction, so
// repositories work inside and outside transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the transaction in ctx, or the pool.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil {
		return t.Tx
	}
	return m.pool
}

// ReadOnly runs fn in a read-only transaction of the configured isolation.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := m.opts
	opts.AccessMode = pgx.ReadOnly
	return m.RunInTransactionWithOptions(ctx, opts, fn)
}
