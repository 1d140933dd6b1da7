package transaction

import (
	"context"

	"ledgercore/internal/core/id"
)

// Repository persists transactions and their lines.
type Repository interface {
	// Create inserts the header and every line.
	Create(ctx context.Context, t *Transaction) error

	// GetByID loads a transaction of tenantID with its lines ordered by LineNo.
	// Unknown ids and ids of other tenants return NotFound.
	GetByID(ctx context.Context, tenantID, transactionID id.ID) (*Transaction, error)

	// GetForUpdate is GetByID holding a row lock on the header until the
	// enclosing storage transaction ends.
	GetForUpdate(ctx context.Context, tenantID, transactionID id.ID) (*Transaction, error)

	// UpdateHeader writes status, reference, notes, attributes and updated_at
	// when the stored version equals t.Version, then bumps t.Version.
	// Lines, counterparty and total are never rewritten.
	UpdateHeader(ctx context.Context, t *Transaction) error
}
