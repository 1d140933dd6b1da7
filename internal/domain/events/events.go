// Package events defines domain events written to the transactional outbox.
package events

import (
	"context"
	"time"

	"ledgercore/internal/core/id"
)

// Event types.
const (
	TransactionCreated       = "transaction.created"
	TransactionStatusChanged = "transaction.status_changed"
	TransactionUpdated       = "transaction.updated"
	StockAdjusted            = "stock.adjusted"
)

// Aggregate types.
const (
	AggregateTransaction = "transaction"
	AggregateProduct     = "product"
)

// Event is a fact recorded in the same storage transaction as the change it describes.
type Event struct {
	ID            id.ID
	TenantID      id.ID
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
	OccurredAt    time.Time
}

// New builds an event stamped with a fresh id and the current time.
func New(tenantID id.ID, aggregateType string, aggregateID id.ID, eventType string, payload any) Event {
	return Event{
		ID:            id.New(),
		TenantID:      tenantID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       payload,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher stores events. Publish must be called inside a storage
// transaction so the event commits or rolls back with the change.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// NopPublisher drops events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }

// Recorder is an in-process Publisher that keeps events in memory.
// Useful for tests.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, events ...Event) error {
	r.Events = append(r.Events, events...)
	return nil
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
