// Package domain provides the generic catalog service and repository contracts
// shared by products, clients and providers.
package domain

import (
	"context"
	"time"

	"ledgercore/internal/core/id"
)

// Entity is a tenant-owned catalog record.
type Entity interface {
	Validate(ctx context.Context) error
	GetID() id.ID
	GetTenantID() id.ID
	GetVersion() int

	// SetStamp records the version and update time a repository just wrote.
	SetStamp(version int, updatedAt time.Time)
}

// --- Repository Interfaces ---

// CatalogRepository defines persistence for catalog entities.
// Every read is scoped by tenant: a record owned by another tenant is NotFound.
type CatalogRepository[T Entity] interface {
	// Create inserts a new entity.
	Create(ctx context.Context, entity T) error

	// GetByID retrieves an entity of tenantID.
	GetByID(ctx context.Context, tenantID, entityID id.ID) (T, error)

	// Update writes the entity when the stored version equals entity.GetVersion()
	// and bumps the version; a stale version returns ConcurrentModification.
	Update(ctx context.Context, entity T) error

	// SetActive toggles the active flag.
	SetActive(ctx context.Context, tenantID, entityID id.ID, active bool) error
}

// --- Hooks ---

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
	BeforeUpdate HookEvent = "before_update"
	AfterUpdate  HookEvent = "after_update"
)

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event, stopping at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// OnBeforeCreate registers a hook to run before create, inside the transaction.
func (r *HookRegistry[T]) OnBeforeCreate(hook Hook[T]) {
	r.On(BeforeCreate, hook)
}

// OnAfterCreate registers a hook to run after the create committed.
func (r *HookRegistry[T]) OnAfterCreate(hook Hook[T]) {
	r.On(AfterCreate, hook)
}

// OnBeforeUpdate registers a hook to run before update, inside the transaction.
func (r *HookRegistry[T]) OnBeforeUpdate(hook Hook[T]) {
	r.On(BeforeUpdate, hook)
}

// OnAfterUpdate registers a hook to run after the update committed.
func (r *HookRegistry[T]) OnAfterUpdate(hook Hook[T]) {
	r.On(AfterUpdate, hook)
}
