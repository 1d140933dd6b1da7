// Package entity provides the fields shared by every tenant-owned ledger record.
package entity

import (
	"time"

	"ledgercore/internal/core/id"
)

// BaseEntity contains common fields for products, counterparties and transactions.
// Every row carries its tenant; ownership is always checked by comparing TenantID
// directly, never by walking references.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// TenantID is the owning main account
	TenantID id.ID `db:"tenant_id" json:"tenantId"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	// Attributes stores custom fields (JSONB in PostgreSQL)
	Attributes Attributes `db:"attributes" json:"attributes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseEntity creates a new BaseEntity with generated ID and timestamps.
func NewBaseEntity(tenantID id.ID, now time.Time) BaseEntity {
	now = now.UTC()
	return BaseEntity{
		ID:        id.New(),
		TenantID:  tenantID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp. Repositories bump Version when the
// write succeeds.
func (b *BaseEntity) Touch(now time.Time) {
	b.UpdatedAt = now.UTC()
}

func (b BaseEntity) GetID() id.ID       { return b.ID }
func (b BaseEntity) GetTenantID() id.ID { return b.TenantID }
func (b BaseEntity) GetVersion() int    { return b.Version }

func (b *BaseEntity) SetStamp(version int, updatedAt time.Time) {
	b.Version = version
	b.UpdatedAt = updatedAt.UTC()
}
