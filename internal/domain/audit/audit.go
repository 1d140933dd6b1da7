// Package audit records who changed what. Entries are written in the same
// storage transaction as the change.
package audit

import (
	"context"
	"time"

	appctx "ledgercore/internal/core/context"
	"ledgercore/internal/core/id"
)

// Action is the kind of audited change.
type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionStatusChange Action = "status_change"
	ActionAdjust       Action = "adjust"
)

// Entry is one audit record. Before and After are marshalled to JSON by the store.
type Entry struct {
	ID         id.ID
	TenantID   id.ID
	EntityType string
	EntityID   id.ID
	Action     Action
	UserID     *id.ID
	Before     any
	After      any
	CreatedAt  time.Time
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NopRecorder drops entries.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error { return nil }

// Fill sets the id, timestamp and acting user when they are missing.
func Fill(ctx context.Context, e *Entry) {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.UserID == nil {
		if uid := appctx.GetUserID(ctx); !id.IsNil(uid) {
			e.UserID = &uid
		}
	}
}
