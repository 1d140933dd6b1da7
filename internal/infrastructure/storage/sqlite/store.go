// Package sqlite implements every ledger repository on an embedded SQLite
// database through sqlx.
//
// Write transactions start with BEGIN IMMEDIATE (_txlock=immediate), so the
// database write lock is taken up front and two writers never interleave.
// A single pooled connection keeps ":memory:" databases alive for the life
// of the Store.
package sqlite

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/tx"
	"ledgercore/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

// DefaultBusyTimeout is how long a connection waits on a locked database
// before SQLITE_BUSY is returned.
const DefaultBusyTimeout = 5 * time.Second

// Store is a SQLite-backed ledger store.
type Store struct {
	db    *sqlx.DB
	retry tx.RetryPolicy
	now   func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db:    db,
		retry: tx.DefaultRetryPolicy(),
		now:   time.Now,
	}, nil
}

func dsn(path string) string {
	params := fmt.Sprintf("_txlock=immediate&_foreign_keys=on&_busy_timeout=%d", DefaultBusyTimeout.Milliseconds())
	if path != ":memory:" {
		params += "&_journal_mode=WAL"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params
}

// WithRetryPolicy replaces the retry policy for transient failures.
func (s *Store) WithRetryPolicy(p tx.RetryPolicy) *Store {
	s.retry = p
	return s
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Ping reports whether the database file answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type txKey struct{}

type txHolder struct {
	owner *Store
	tx    *sqlx.Tx
}

func (s *Store) getTx(ctx context.Context) *sqlx.Tx {
	if h, ok := ctx.Value(txKey{}).(txHolder); ok && h.owner == s {
		return h.tx
	}
	return nil
}

// q returns the active transaction or the database.
func (s *Store) q(ctx context.Context) sqlx.ExtContext {
	if t := s.getTx(ctx); t != nil {
		return t
	}
	return s.db
}

func (s *Store) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

// RunInTransaction implements tx.Manager. Nested calls reuse the outer
// transaction; busy/locked errors and version conflicts are retried.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.getTx(ctx) != nil {
		return fn(ctx)
	}

	onRetry := func(attempt int, err error) {
		logger.Warn(ctx, "retrying sqlite transaction", "attempt", attempt, "error", err)
	}
	return tx.Retry(ctx, s.retry, IsTransient, onRetry, func(ctx context.Context) error {
		return s.runOnce(ctx, fn)
	})
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	t, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = t.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := t.Rollback(); rbErr != nil && !errors.Is(rbErr, context.Canceled) {
				logger.Error(ctx, "sqlite rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, txHolder{owner: s, tx: t})); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = t.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ReadOnly implements tx.ReadOnlyManager.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

// IsTransient reports whether a failed transaction may succeed when re-run.
func IsTransient(err error) bool {
	if apperror.IsConcurrentModification(err) {
		return true
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked
	}
	return false
}

// MapError turns constraint violations into application errors. Other errors
// are returned unchanged.
func MapError(err error, entity string) error {
	var sqErr sqlite3.Error
	if !errors.As(err, &sqErr) || sqErr.Code != sqlite3.ErrConstraint {
		return err
	}
	switch sqErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return apperror.NewDuplicate(entity, constraintColumns(sqErr.Error()), "").WithCause(err)
	case sqlite3.ErrConstraintForeignKey:
		return apperror.NewValidation("referenced record does not exist").
			WithDetail("entity", entity).
			WithCause(err)
	case sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
		return apperror.NewValidation("value violates constraint").
			WithDetail("entity", entity).
			WithCause(err)
	}
	return err
}

// constraintColumns extracts "sku" from "UNIQUE constraint failed: products.tenant_id, products.sku".
func constraintColumns(msg string) string {
	i := strings.LastIndex(msg, ": ")
	if i < 0 {
		return ""
	}
	cols := strings.Split(msg[i+2:], ", ")
	last := cols[len(cols)-1]
	if dot := strings.LastIndexByte(last, '.'); dot >= 0 {
		last = last[dot+1:]
	}
	return last
}
