package events

import (
	"context"
	"encoding/json"
	"time"

	"ledgercore/internal/core/id"
	"ledgercore/pkg/logger"
)

// MaxAttempts is how often delivery of a message is tried before it is
// marked failed.
const MaxAttempts = 5

// RetryDelay is the pause before the next delivery of a message that has
// failed attempts times.
func RetryDelay(attempts int) time.Duration {
	return time.Duration(attempts+1) * time.Minute
}

// Message is an outbox row read back for delivery.
type Message struct {
	ID            id.ID           `db:"id"`
	TenantID      id.ID           `db:"tenant_id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   id.ID           `db:"aggregate_id"`
	Type          string          `db:"event_type"`
	Payload       json.RawMessage `db:"payload"`
	Attempts      int             `db:"retry_count"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Handler delivers one message. An error schedules a retry.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg Message) error { return f(ctx, msg) }

// LogHandler delivers messages to the structured log.
func LogHandler() Handler {
	return HandlerFunc(func(ctx context.Context, msg Message) error {
		logger.Info(ctx, "event",
			"event_id", msg.ID,
			"tenant_id", msg.TenantID,
			"type", msg.Type,
			"aggregate", msg.AggregateType,
			"aggregate_id", msg.AggregateID,
			"payload", string(msg.Payload),
		)
		return nil
	})
}

// Relay moves pending outbox messages to a Handler.
type Relay interface {
	// ProcessBatch delivers up to one batch and returns how many messages
	// were delivered.
	ProcessBatch(ctx context.Context) (int, error)
}

// Poll runs relay until ctx is done. Full batches are followed immediately by
// the next one; otherwise Poll sleeps for interval.
func Poll(ctx context.Context, relay Relay, interval time.Duration) error {
	for {
		n, err := relay.ProcessBatch(ctx)
		if err != nil {
			logger.Error(ctx, "outbox batch failed", "error", err)
		}

		if err == nil && n > 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
