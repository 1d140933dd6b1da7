package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"ledgercore/internal/domain/events"
	"ledgercore/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

const insertOutboxSQL = `
	INSERT INTO sys_outbox (id, tenant_id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

var _ events.Publisher = (*OutboxPublisher)(nil)

// OutboxPublisher writes events to the outbox table.
type OutboxPublisher struct {
	txManager *TxManager
}

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

// Publish writes events to the outbox within the current transaction.
// MUST be called inside a transaction context.
func (p *OutboxPublisher) Publish(ctx context.Context, evs ...events.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}
	if len(evs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, ev := range evs {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		batch.Queue(insertOutboxSQL,
			ev.ID, ev.TenantID, ev.AggregateType, ev.AggregateID, ev.Type,
			payload, OutboxStatusPending, ev.OccurredAt)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range evs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert outbox message: %w", err)
		}
	}
	return nil
}

var _ events.Relay = (*OutboxRelay)(nil)

// OutboxRelay reads and delivers messages from the outbox.
// Used by the background worker.
type OutboxRelay struct {
	txManager *TxManager
	batchSize int
	handler   events.Handler
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, batchSize int, handler events.Handler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		txManager: txManager,
		batchSize: batchSize,
		handler:   handler,
	}
}

// ProcessBatch locks a batch of due messages, delivers them, and records the
// outcome in the same transaction. SKIP LOCKED lets several workers run.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	opts := DefaultTxOptions()
	opts.IsolationLevel = pgx.ReadCommitted

	err := r.txManager.RunInTransactionWithOptions(ctx, opts, func(ctx context.Context) error {
		processed = 0
		q := r.txManager.GetQuerier(ctx)

		var messages []events.Message
		err := pgxscan.Select(ctx, q, &messages, `
			SELECT id, tenant_id, aggregate_type, aggregate_id, event_type, payload, retry_count, created_at
			FROM sys_outbox
			WHERE status = $1
			  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, OutboxStatusPending, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			if err := r.deliver(ctx, q, msg); err != nil {
				return err
			}
			processed++
		}
		return nil
	})
	return processed, err
}

// deliver hands msg to the handler. A handler error is recorded on the row;
// only storage errors abort the batch.
func (r *OutboxRelay) deliver(ctx context.Context, q Querier, msg events.Message) error {
	if herr := r.handler.Handle(ctx, msg); herr != nil {
		status := OutboxStatusPending
		if msg.Attempts+1 >= events.MaxAttempts {
			status = OutboxStatusFailed
		}
		logger.Warn(ctx, "outbox delivery failed", "event_id", msg.ID, "attempt", msg.Attempts+1, "error", herr)

		_, err := q.Exec(ctx, `
			UPDATE sys_outbox
			SET retry_count = retry_count + 1,
			    last_error = $1,
			    next_retry_at = $2,
			    status = $3
			WHERE id = $4
		`, herr.Error(), time.Now().UTC().Add(events.RetryDelay(msg.Attempts)), status, msg.ID)
		if err != nil {
			return fmt.Errorf("update failed message: %w", err)
		}
		return nil
	}

	_, err := q.Exec(ctx, `
		UPDATE sys_outbox
		SET status = $1, published_at = $2
		WHERE id = $3
	`, OutboxStatusPublished, time.Now().UTC(), msg.ID)
	if err != nil {
		return fmt.Errorf("mark message published: %w", err)
	}
	return nil
}
