package stock

import (
	"context"

	"ledgercore/internal/core/id"
)

// Repository persists stock levels and the movement journal.
// All methods run on the storage transaction carried by ctx.
type Repository interface {
	// LockLevels returns the levels of the given products owned by tenantID and
	// holds a row lock on each until the enclosing transaction ends.
	// Unknown ids and ids owned by another tenant are simply absent.
	LockLevels(ctx context.Context, tenantID id.ID, productIDs []id.ID) ([]Level, error)

	// GetLevel reads a level without locking. Returns apperror NotFound when
	// the product does not exist for tenantID.
	GetLevel(ctx context.Context, tenantID, productID id.ID) (Level, error)

	// SaveLevel stores level.Stock when the stored version still equals
	// level.Version and increments the version. A version mismatch returns
	// apperror.NewConcurrentModification.
	SaveLevel(ctx context.Context, level Level) error

	// AppendMovements writes journal rows.
	AppendMovements(ctx context.Context, movements []Movement) error

	// ListMovements returns the newest movements of a product first.
	ListMovements(ctx context.Context, tenantID, productID id.ID, limit int) ([]Movement, error)
}
