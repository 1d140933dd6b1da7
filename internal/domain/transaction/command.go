package transaction

import (
	"time"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
)

// CreateCommand asks for a new sale or purchase.
type CreateCommand struct {
	TenantID      id.ID `validate:"uuid_required"`
	CreatorUserID id.ID `validate:"uuid_required"`
	Type          Type  `validate:"required,oneof=SALE PURCHASE"`

	// CounterpartyID is a client for a sale and a provider for a purchase.
	CounterpartyID id.ID `validate:"uuid_required"`

	Lines []LineInput

	// Optional. Date defaults to now, ReferenceNumber to a generated
	// SAL-/PUR- number, Status to COMPLETED.
	Date            *time.Time
	ReferenceNumber string `validate:"max=100"`
	Notes           *string
	Status          Status `validate:"omitempty,oneof=PENDING COMPLETED"`
	Attributes      entity.Attributes
}

// LineInput is one requested line.
type LineInput struct {
	ProductID id.ID
	Quantity  int64

	// UnitPrice defaults to the product's sale price for a sale and its
	// purchase price for a purchase.
	UnitPrice  *types.Money
	Attributes entity.Attributes
}

// UpdateDetailsCommand edits the descriptive fields of a transaction.
// Nil fields are left unchanged; Attributes is merged, a nil value deletes a key.
type UpdateDetailsCommand struct {
	TenantID        id.ID `validate:"uuid_required"`
	TransactionID   id.ID `validate:"uuid_required"`
	ExpectedVersion *int
	Notes           *string
	ReferenceNumber *string `validate:"omitempty,max=100"`
	Attributes      entity.Attributes
}
