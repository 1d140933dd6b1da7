// Package numerator allocates per-tenant reference numbers from the
// sys_sequences table.
//
// Numbers are taken with a single UPSERT ... RETURNING on the storage
// transaction carried by the context, so a rolled back transaction gives its
// number back and committed references have no gaps.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ledgercore/internal/core/id"
	corenumerator "ledgercore/internal/core/numerator"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc resolves the querier for ctx (the active transaction or the pool).
type QuerierFunc func(ctx context.Context) Querier

// Service provides reference numbering backed by PostgreSQL.
type Service struct {
	querier QuerierFunc
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator that always uses q. Use for tests and tools.
func New(q Querier) *Service {
	return &Service{querier: func(context.Context) Querier { return q }}
}

// NewFromContext creates a numerator that resolves its querier per call.
func NewFromContext(fn QuerierFunc) *Service {
	return &Service{querier: fn}
}

const nextSQL = `
	INSERT INTO sys_sequences (tenant_id, key, current_val)
	VALUES ($1, $2, 1)
	ON CONFLICT (tenant_id, key) DO UPDATE SET current_val = sys_sequences.current_val + 1
	RETURNING current_val`

const setSQL = `
	INSERT INTO sys_sequences (tenant_id, key, current_val)
	VALUES ($1, $2, $3)
	ON CONFLICT (tenant_id, key) DO UPDATE SET current_val = $3
	RETURNING current_val`

// Next generates the next reference number, e.g. SAL-2026-00001.
func (s *Service) Next(ctx context.Context, tenantID id.ID, cfg corenumerator.Config, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	key := corenumerator.Key(cfg, period)

	var num int64
	if err := s.querier(ctx).QueryRow(ctx, nextSQL, tenantID, key).Scan(&num); err != nil {
		return "", fmt.Errorf("next number %s: %w", key, err)
	}
	return corenumerator.Format(cfg, period, num), nil
}

// SetLast makes value the last allocated number, so the next call returns
// value+1. Used when importing references from another system.
func (s *Service) SetLast(ctx context.Context, tenantID id.ID, cfg corenumerator.Config, period time.Time, value int64) error {
	if value < 0 {
		return fmt.Errorf("sequence value must be non-negative, got %d", value)
	}
	key := corenumerator.Key(cfg, period)

	var result int64
	if err := s.querier(ctx).QueryRow(ctx, setSQL, tenantID, key, value).Scan(&result); err != nil {
		return fmt.Errorf("set sequence %s: %w", key, err)
	}
	return nil
}
