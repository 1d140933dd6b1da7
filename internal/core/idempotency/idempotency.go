// Package idempotency defines the store behind the Idempotency-Key header:
// the first completed response for a key is kept and replayed.
package idempotency

import (
	"context"
	"time"

	"ledgercore/internal/core/id"
)

// Status of a key.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// DefaultTTL is how long completed responses are replayed.
const DefaultTTL = 24 * time.Hour

// StaleAfter is how long a pending key may stay unfinished before another
// request may reclaim it.
const StaleAfter = time.Minute

// Key identifies one idempotent request.
type Key struct {
	TenantID    id.ID
	Key         string
	Operation   string
	RequestHash string
}

// Replay is a stored response.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store persists keys.
type Store interface {
	// Acquire claims k. It returns (nil, nil) when the caller should run the
	// request, a Replay when a response is stored, IDEMPOTENCY_CONFLICT while
	// another request holds the key, and IDEMPOTENCY_MISMATCH when the key was
	// used for a different request.
	Acquire(ctx context.Context, k Key) (*Replay, error)

	// Complete stores the response of a claimed key.
	Complete(ctx context.Context, k Key, r Replay) error

	// Release drops a claimed key so the request can be retried.
	Release(ctx context.Context, k Key) error
}

// NormalizeReplay fills defaults for records stored without status or content type.
func NormalizeReplay(r Replay) Replay {
	if r.StatusCode == 0 {
		r.StatusCode = 200
	}
	if r.ContentType == "" {
		r.ContentType = "application/json"
	}
	return r
}
