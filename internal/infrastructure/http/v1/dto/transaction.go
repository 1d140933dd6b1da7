package dto

import (
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/transaction"
)

// --- Request DTOs ---

// CreateTransactionRequest is the request body for a sale or a purchase.
// A sale names clientId, a purchase names providerId.
type CreateTransactionRequest struct {
	Type            transaction.Type   `json:"type" binding:"required"`
	ClientID        *id.ID             `json:"clientId"`
	ProviderID      *id.ID             `json:"providerId"`
	TransactionDate *time.Time         `json:"transactionDate"`
	ReferenceNumber string             `json:"referenceNumber"`
	Notes           *string            `json:"notes"`
	Status          transaction.Status `json:"status"`
	Attributes      entity.Attributes  `json:"attributes"`
	Lines           []LineRequest      `json:"lines"`
}

// LineRequest is one requested line. UnitPrice defaults to the catalog price.
type LineRequest struct {
	ProductID  id.ID             `json:"productId"`
	Quantity   int64             `json:"quantity"`
	UnitPrice  *types.Money      `json:"unitPrice"`
	Attributes entity.Attributes `json:"attributes"`
}

// ToCommand converts the request into a create command for tenantID.
// The counterparty field must match the type.
func (r *CreateTransactionRequest) ToCommand(tenantID, userID id.ID) (transaction.CreateCommand, error) {
	cmd := transaction.CreateCommand{
		TenantID:        tenantID,
		CreatorUserID:   userID,
		Type:            r.Type,
		Date:            r.TransactionDate,
		ReferenceNumber: r.ReferenceNumber,
		Notes:           r.Notes,
		Status:          r.Status,
		Attributes:      r.Attributes,
	}

	switch r.Type {
	case transaction.TypeSale:
		if r.ProviderID != nil {
			return cmd, apperror.NewValidation("a sale does not take a provider").WithDetail("field", "providerId")
		}
		if r.ClientID == nil {
			return cmd, apperror.NewValidation("clientId is required for a sale").WithDetail("field", "clientId")
		}
		cmd.CounterpartyID = *r.ClientID
	case transaction.TypePurchase:
		if r.ClientID != nil {
			return cmd, apperror.NewValidation("a purchase does not take a client").WithDetail("field", "clientId")
		}
		if r.ProviderID == nil {
			return cmd, apperror.NewValidation("providerId is required for a purchase").WithDetail("field", "providerId")
		}
		cmd.CounterpartyID = *r.ProviderID
	default:
		return cmd, apperror.NewValidation("invalid transaction type").WithDetail("type", string(r.Type))
	}

	cmd.Lines = make([]transaction.LineInput, len(r.Lines))
	for i, l := range r.Lines {
		cmd.Lines[i] = transaction.LineInput{
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			Attributes: l.Attributes,
		}
	}
	return cmd, nil
}

// UpdateTransactionRequest edits descriptive fields. Absent fields are kept;
// an attribute set to null is removed.
type UpdateTransactionRequest struct {
	Notes           *string           `json:"notes"`
	ReferenceNumber *string           `json:"referenceNumber"`
	Attributes      entity.Attributes `json:"attributes"`
	Version         *int              `json:"version"`
}

// ToCommand converts the request into an update command.
func (r *UpdateTransactionRequest) ToCommand(tenantID, transactionID id.ID) transaction.UpdateDetailsCommand {
	return transaction.UpdateDetailsCommand{
		TenantID:        tenantID,
		TransactionID:   transactionID,
		ExpectedVersion: r.Version,
		Notes:           r.Notes,
		ReferenceNumber: r.ReferenceNumber,
		Attributes:      r.Attributes,
	}
}

// ChangeStatusRequest is the body of POST /transactions/:id/status.
type ChangeStatusRequest struct {
	Status transaction.Status `json:"status" binding:"required"`
}

// --- Response DTOs ---

// TransactionResponse is the response for a transaction with its lines.
type TransactionResponse struct {
	BaseResponse
	Type            transaction.Type   `json:"type"`
	ClientID        *id.ID             `json:"clientId,omitempty"`
	ProviderID      *id.ID             `json:"providerId,omitempty"`
	TransactionDate time.Time          `json:"transactionDate"`
	ReferenceNumber string             `json:"referenceNumber"`
	TotalAmount     string             `json:"totalAmount"`
	Notes           *string            `json:"notes,omitempty"`
	Status          transaction.Status `json:"status"`
	CreatedBy       id.ID              `json:"createdBy"`
	Lines           []LineResponse     `json:"lines"`
}

// LineResponse is one line of a transaction.
type LineResponse struct {
	ID         id.ID             `json:"id"`
	LineNo     int               `json:"lineNo"`
	ProductID  id.ID             `json:"productId"`
	Quantity   int64             `json:"quantity"`
	UnitPrice  string            `json:"unitPrice"`
	Subtotal   string            `json:"subtotal"`
	Attributes entity.Attributes `json:"attributes,omitempty"`
}

// FromTransaction converts domain entity to response DTO.
func FromTransaction(t *transaction.Transaction) TransactionResponse {
	lines := make([]LineResponse, len(t.Lines))
	for i, l := range t.Lines {
		lines[i] = LineResponse{
			ID:         l.ID,
			LineNo:     l.LineNo,
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitPrice:  Money(l.UnitPrice),
			Subtotal:   Money(l.Subtotal),
			Attributes: l.Attributes,
		}
	}
	return TransactionResponse{
		BaseResponse:    baseResponse(t.BaseEntity),
		Type:            t.Type,
		ClientID:        t.ClientID,
		ProviderID:      t.ProviderID,
		TransactionDate: t.Date,
		ReferenceNumber: t.ReferenceNumber,
		TotalAmount:     Money(t.TotalAmount),
		Notes:           t.Notes,
		Status:          t.Status,
		CreatedBy:       t.CreatedBy,
		Lines:           lines,
	}
}

// VerifyResponse reports a consistent transaction.
type VerifyResponse struct {
	TransactionID id.ID `json:"transactionId"`
	Consistent    bool  `json:"consistent"`
}
