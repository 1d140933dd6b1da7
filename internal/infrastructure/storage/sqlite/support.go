package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/idempotency"
	"ledgercore/internal/core/numerator"
	"ledgercore/internal/core/tx"
	"ledgercore/internal/domain/audit"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/domain/catalogs/product"
	"ledgercore/internal/domain/events"
	"ledgercore/internal/domain/stock"
	"ledgercore/internal/domain/transaction"
	"ledgercore/internal/infrastructure/storage/codec"
	"ledgercore/pkg/logger"
)

var (
	_ tx.ReadOnlyManager              = (*Store)(nil)
	_ numerator.Generator             = (*Numerator)(nil)
	_ events.Publisher                = (*Outbox)(nil)
	_ events.Relay                    = (*Relay)(nil)
	_ audit.Recorder                  = (*AuditLog)(nil)
	_ idempotency.Store               = (*IdempotencyStore)(nil)
	_ product.Repository              = (*ProductRepo)(nil)
	_ stock.Repository                = (*StockRepo)(nil)
	_ transaction.Repository          = (*TransactionRepo)(nil)
	_ counterparty.ClientRepository   = (*ClientRepo)(nil)
	_ counterparty.ProviderRepository = (*ProviderRepo)(nil)
)

// --- Numerator ---

// Numerator implements numerator.Generator on sys_sequences.
type Numerator struct{ s *Store }

// Numerator returns the sequence generator of s.
func (s *Store) Numerator() *Numerator { return &Numerator{s: s} }

func (n *Numerator) Next(ctx context.Context, tenantID id.ID, cfg numerator.Config, period time.Time) (string, error) {
	key := numerator.Key(cfg, period)

	var num int64
	err := sqlx.GetContext(ctx, n.s.q(ctx), &num, `
		INSERT INTO sys_sequences (tenant_id, key, current_val)
		VALUES (?, ?, 1)
		ON CONFLICT (tenant_id, key) DO UPDATE SET current_val = current_val + 1
		RETURNING current_val
	`, tenantID, key)
	if err != nil {
		return "", fmt.Errorf("next number %s: %w", key, err)
	}
	return numerator.Format(cfg, period, num), nil
}

// --- Outbox ---

const (
	outboxPending   = "pending"
	outboxPublished = "published"
	outboxFailed    = "failed"
)

// Outbox implements events.Publisher.
type Outbox struct{ s *Store }

// Outbox returns the event publisher of s.
func (s *Store) Outbox() *Outbox { return &Outbox{s: s} }

// Publish writes events in the current transaction.
func (o *Outbox) Publish(ctx context.Context, evs ...events.Event) error {
	if o.s.getTx(ctx) == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}
	for _, ev := range evs {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		_, err = o.s.q(ctx).ExecContext(ctx, `
			INSERT INTO sys_outbox (id, tenant_id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, ev.ID, ev.TenantID, ev.AggregateType, ev.AggregateID, ev.Type, payload, outboxPending, ev.OccurredAt)
		if err != nil {
			return fmt.Errorf("insert outbox message: %w", err)
		}
	}
	return nil
}

// Relay delivers pending outbox messages to a handler.
type Relay struct {
	s         *Store
	batchSize int
	handler   events.Handler
}

// Relay returns an outbox relay of s.
func (s *Store) Relay(batchSize int, handler events.Handler) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{s: s, batchSize: batchSize, handler: handler}
}

func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.s.RunInTransaction(ctx, func(ctx context.Context) error {
		processed = 0
		q := r.s.q(ctx)
		now := r.s.clock()

		var messages []events.Message
		err := sqlx.SelectContext(ctx, q, &messages, `
			SELECT id, tenant_id, aggregate_type, aggregate_id, event_type, payload, retry_count, created_at
			FROM sys_outbox
			WHERE status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)
			ORDER BY created_at
			LIMIT ?
		`, outboxPending, now, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			if herr := r.handler.Handle(ctx, msg); herr != nil {
				status := outboxPending
				if msg.Attempts+1 >= events.MaxAttempts {
					status = outboxFailed
				}
				logger.Warn(ctx, "outbox delivery failed", "event_id", msg.ID, "attempt", msg.Attempts+1, "error", herr)
				_, err = q.ExecContext(ctx, `
					UPDATE sys_outbox SET retry_count = retry_count + 1, last_error = ?, next_retry_at = ?, status = ?
					WHERE id = ?
				`, herr.Error(), now.Add(events.RetryDelay(msg.Attempts)), status, msg.ID)
			} else {
				_, err = q.ExecContext(ctx, `UPDATE sys_outbox SET status = ?, published_at = ? WHERE id = ?`,
					outboxPublished, now, msg.ID)
			}
			if err != nil {
				return fmt.Errorf("update outbox message: %w", err)
			}
			processed++
		}
		return nil
	})
	return processed, err
}

// --- Audit ---

// AuditLog implements audit.Recorder.
type AuditLog struct {
	s     *Store
	codec *codec.Codec
}

// Audit returns the audit recorder of s.
func (s *Store) Audit(c *codec.Codec) *AuditLog { return &AuditLog{s: s, codec: c} }

func (a *AuditLog) Record(ctx context.Context, e audit.Entry) error {
	audit.Fill(ctx, &e)

	changes, err := a.codec.Encode(map[string]any{"before": e.Before, "after": e.After})
	if err != nil {
		return err
	}
	_, err = a.s.q(ctx).ExecContext(ctx, `
		INSERT INTO sys_audit (
			id, tenant_id, entity_type, entity_id, action, user_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.TenantID, e.EntityType, e.EntityID, e.Action, e.UserID,
		changes.JSON, changes.Compressed, changes.Algo, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// auditRow is a sys_audit row read back for inspection.
type auditRow struct {
	EntityType string     `db:"entity_type"`
	EntityID   id.ID      `db:"entity_id"`
	Action     string     `db:"action"`
	Changes    []byte     `db:"changes"`
	Compressed []byte     `db:"changes_compressed"`
	Algo       codec.Algo `db:"compression_algo"`
}

// AuditChanges returns the decoded change sets recorded for an entity, oldest first.
func (a *AuditLog) AuditChanges(ctx context.Context, tenantID, entityID id.ID) ([]json.RawMessage, error) {
	var rows []auditRow
	err := sqlx.SelectContext(ctx, a.s.q(ctx), &rows, `
		SELECT entity_type, entity_id, action, changes, changes_compressed, compression_algo
		FROM sys_audit WHERE tenant_id = ? AND entity_id = ? ORDER BY created_at, id
	`, tenantID, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		raw, err := a.codec.Decode(codec.Payload{JSON: r.Changes, Compressed: r.Compressed, Algo: r.Algo})
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// --- Idempotency ---

type idempotencyRow struct {
	Operation   string             `db:"operation"`
	Status      idempotency.Status `db:"status"`
	RequestHash string             `db:"request_hash"`
	Response    []byte             `db:"response"`
	StatusCode  *int               `db:"response_status"`
	ContentType *string            `db:"response_content_type"`
	UpdatedAt   time.Time          `db:"updated_at"`
	ExpiresAt   time.Time          `db:"expires_at"`
}

// IdempotencyStore implements idempotency.Store.
type IdempotencyStore struct {
	s   *Store
	ttl time.Duration
}

// Idempotency returns the idempotency store of s.
func (s *Store) Idempotency(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{s: s, ttl: ttl}
}

// Acquire runs in its own write transaction, so the read and the claim are atomic.
func (st *IdempotencyStore) Acquire(ctx context.Context, k idempotency.Key) (*idempotency.Replay, error) {
	var replay *idempotency.Replay
	err := st.s.RunInTransaction(ctx, func(ctx context.Context) error {
		q := st.s.q(ctx)
		now := st.s.clock()

		var rec idempotencyRow
		err := sqlx.GetContext(ctx, q, &rec, `
			SELECT operation, status, request_hash, response, response_status, response_content_type, updated_at, expires_at
			FROM sys_idempotency WHERE tenant_id = ? AND idempotency_key = ?
		`, k.TenantID, k.Key)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read idempotency key: %w", err)
		}

		if errors.Is(err, sql.ErrNoRows) || now.After(rec.ExpiresAt) {
			_, err = q.ExecContext(ctx, `
				INSERT OR REPLACE INTO sys_idempotency
					(tenant_id, idempotency_key, operation, status, request_hash, created_at, updated_at, expires_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, k.TenantID, k.Key, k.Operation, idempotency.StatusPending, k.RequestHash, now, now, now.Add(st.ttl))
			if err != nil {
				return fmt.Errorf("claim idempotency key: %w", err)
			}
			return nil
		}

		if rec.Operation != k.Operation || rec.RequestHash != k.RequestHash {
			return apperror.NewIdempotencyMismatch(k.Key).
				WithDetail("stored_operation", rec.Operation).
				WithDetail("request_operation", k.Operation)
		}

		if rec.Status == idempotency.StatusCompleted {
			r := idempotency.Replay{Body: rec.Response}
			if rec.StatusCode != nil {
				r.StatusCode = *rec.StatusCode
			}
			if rec.ContentType != nil {
				r.ContentType = *rec.ContentType
			}
			r = idempotency.NormalizeReplay(r)
			replay = &r
			return nil
		}

		if now.Sub(rec.UpdatedAt) > idempotency.StaleAfter {
			_, err = q.ExecContext(ctx, `
				UPDATE sys_idempotency SET updated_at = ? WHERE tenant_id = ? AND idempotency_key = ?
			`, now, k.TenantID, k.Key)
			if err != nil {
				return fmt.Errorf("reclaim stale key: %w", err)
			}
			return nil
		}
		return apperror.NewIdempotencyConflict(k.Key)
	})
	return replay, err
}

func (st *IdempotencyStore) Complete(ctx context.Context, k idempotency.Key, r idempotency.Replay) error {
	res, err := st.s.q(ctx).ExecContext(ctx, `
		UPDATE sys_idempotency
		SET status = ?, response = ?, response_status = ?, response_content_type = ?, updated_at = ?
		WHERE tenant_id = ? AND idempotency_key = ?
	`, idempotency.StatusCompleted, r.Body, r.StatusCode, r.ContentType, st.s.clock(), k.TenantID, k.Key)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("idempotency key", k.Key)
	}
	return nil
}

func (st *IdempotencyStore) Release(ctx context.Context, k idempotency.Key) error {
	_, err := st.s.q(ctx).ExecContext(ctx, `
		DELETE FROM sys_idempotency WHERE tenant_id = ? AND idempotency_key = ? AND status = ?
	`, k.TenantID, k.Key, idempotency.StatusPending)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired idempotency records.
func (st *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := st.s.q(ctx).ExecContext(ctx, `DELETE FROM sys_idempotency WHERE expires_at < ?`, st.s.clock())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return res.RowsAffected()
}
