package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/idempotency"
)

var _ idempotency.Store = (*IdempotencyStore)(nil)

// idempotencyRecord is a row of sys_idempotency.
type idempotencyRecord struct {
	Operation   string             `db:"operation"`
	Status      idempotency.Status `db:"status"`
	RequestHash string             `db:"request_hash"`
	Response    []byte             `db:"response"`
	StatusCode  *int               `db:"response_status"`
	ContentType *string            `db:"response_content_type"`
	Inserted    bool               `db:"inserted"`
	UpdatedAt   time.Time          `db:"updated_at"`
}

// IdempotencyStore manages idempotency keys, scoped per tenant.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{txManager: txManager, ttl: ttl}
}

// Acquire implements idempotency.Store. The insert either claims the key or
// returns the existing row; an expired row is taken over in the same statement.
func (s *IdempotencyStore) Acquire(ctx context.Context, k idempotency.Key) (*idempotency.Replay, error) {
	now := time.Now().UTC()

	var rec idempotencyRecord
	err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), &rec, `
		INSERT INTO sys_idempotency (tenant_id, idempotency_key, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (tenant_id, idempotency_key) DO UPDATE SET
			operation = CASE WHEN sys_idempotency.expires_at < $6 THEN EXCLUDED.operation ELSE sys_idempotency.operation END,
			request_hash = CASE WHEN sys_idempotency.expires_at < $6 THEN EXCLUDED.request_hash ELSE sys_idempotency.request_hash END,
			status = CASE WHEN sys_idempotency.expires_at < $6 THEN EXCLUDED.status ELSE sys_idempotency.status END,
			response = CASE WHEN sys_idempotency.expires_at < $6 THEN NULL ELSE sys_idempotency.response END,
			created_at = CASE WHEN sys_idempotency.expires_at < $6 THEN $6 ELSE sys_idempotency.created_at END,
			updated_at = CASE WHEN sys_idempotency.expires_at < $6 THEN $6 ELSE sys_idempotency.updated_at END,
			expires_at = CASE WHEN sys_idempotency.expires_at < $6 THEN $7 ELSE sys_idempotency.expires_at END
		RETURNING operation, status, request_hash, response, response_status, response_content_type,
		          (created_at = $6) AS inserted, updated_at
	`, k.TenantID, k.Key, k.Operation, idempotency.StatusPending, k.RequestHash, now, now.Add(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}

	if rec.Inserted {
		return nil, nil
	}

	if rec.Operation != k.Operation || rec.RequestHash != k.RequestHash {
		return nil, apperror.NewIdempotencyMismatch(k.Key).
			WithDetail("stored_operation", rec.Operation).
			WithDetail("request_operation", k.Operation)
	}

	if rec.Status == idempotency.StatusCompleted {
		replay := idempotency.Replay{Body: rec.Response}
		if rec.StatusCode != nil {
			replay.StatusCode = *rec.StatusCode
		}
		if rec.ContentType != nil {
			replay.ContentType = *rec.ContentType
		}
		replay = idempotency.NormalizeReplay(replay)
		return &replay, nil
	}

	// Pending: reclaim a key left behind by a crashed request.
	if now.Sub(rec.UpdatedAt) > idempotency.StaleAfter {
		tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
			UPDATE sys_idempotency
			SET updated_at = $1
			WHERE tenant_id = $2 AND idempotency_key = $3 AND status = $4 AND updated_at = $5
		`, now, k.TenantID, k.Key, idempotency.StatusPending, rec.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("reclaim stale key: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return nil, nil
		}
	}
	return nil, apperror.NewIdempotencyConflict(k.Key)
}

// Complete implements idempotency.Store.
func (s *IdempotencyStore) Complete(ctx context.Context, k idempotency.Key, r idempotency.Replay) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1,
		    response = $2,
		    response_status = $3,
		    response_content_type = $4,
		    updated_at = $5
		WHERE tenant_id = $6 AND idempotency_key = $7
	`, idempotency.StatusCompleted, r.Body, r.StatusCode, r.ContentType, time.Now().UTC(), k.TenantID, k.Key)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release implements idempotency.Store.
func (s *IdempotencyStore) Release(ctx context.Context, k idempotency.Key) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency WHERE tenant_id = $1 AND idempotency_key = $2 AND status = $3
	`, k.TenantID, k.Key, idempotency.StatusPending)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency WHERE expires_at < $1
	`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
