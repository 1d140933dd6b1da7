// Package transaction implements sales and purchases: assembling a consistent
// transaction graph from a command, moving stock through the ledger, and the
// status lifecycle that applies or reverses that stock effect.
package transaction

import (
	"context"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/pricing"
	"ledgercore/internal/domain/stock"
)

// Type is the kind of transaction.
type Type string

const (
	TypeSale     Type = "SALE"
	TypePurchase Type = "PURCHASE"
)

// IsValid reports whether t is a known type.
func (t Type) IsValid() bool {
	return t == TypeSale || t == TypePurchase
}

// Sign is the direction a line of this type moves stock: -1 for a sale, +1 for a purchase.
func (t Type) Sign() int64 {
	if t == TypeSale {
		return -1
	}
	return 1
}

// Source is the journal source for stock moved at creation.
func (t Type) Source() stock.Source {
	if t == TypeSale {
		return stock.SourceSale
	}
	return stock.SourcePurchase
}

// ReferencePrefix is the prefix of generated reference numbers.
func (t Type) ReferencePrefix() string {
	if t == TypeSale {
		return "SAL"
	}
	return "PUR"
}

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Transaction is a sale or purchase with its lines.
type Transaction struct {
	entity.BaseEntity

	Type Type `db:"type" json:"type"`

	// Exactly one is set: ClientID for a sale, ProviderID for a purchase.
	ClientID   *id.ID `db:"client_id" json:"clientId,omitempty"`
	ProviderID *id.ID `db:"provider_id" json:"providerId,omitempty"`

	Date            time.Time   `db:"transaction_date" json:"transactionDate"`
	ReferenceNumber string      `db:"reference_number" json:"referenceNumber"`
	TotalAmount     types.Money `db:"total_amount" json:"totalAmount"`
	Notes           *string     `db:"notes" json:"notes,omitempty"`
	Status          Status      `db:"status" json:"status"`
	CreatedBy       id.ID       `db:"created_by" json:"createdBy"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one product row of a transaction.
type Line struct {
	ID            id.ID             `db:"id" json:"id"`
	TransactionID id.ID             `db:"transaction_id" json:"transactionId"`
	LineNo        int               `db:"line_no" json:"lineNo"`
	ProductID     id.ID             `db:"product_id" json:"productId"`
	Quantity      int64             `db:"quantity" json:"quantity"`
	UnitPrice     types.Money       `db:"unit_price" json:"unitPrice"`
	Subtotal      types.Money       `db:"subtotal" json:"subtotal"`
	Attributes    entity.Attributes `db:"attributes" json:"attributes,omitempty"`
}

// CounterpartyID returns the client or provider id, whichever the type requires.
func (t *Transaction) CounterpartyID() id.ID {
	if t.Type == TypeSale && t.ClientID != nil {
		return *t.ClientID
	}
	if t.Type == TypePurchase && t.ProviderID != nil {
		return *t.ProviderID
	}
	return id.Nil()
}

// StockDeltas returns the stock effect of completing the transaction.
func (t *Transaction) StockDeltas() []stock.Delta {
	sign := t.Type.Sign()
	out := make([]stock.Delta, len(t.Lines))
	for i, l := range t.Lines {
		out[i] = stock.Delta{ProductID: l.ProductID, Quantity: sign * l.Quantity}
	}
	return out
}

// Validate checks the structural invariants of a stored transaction.
func (t *Transaction) Validate(_ context.Context) error {
	if !t.Type.IsValid() {
		return apperror.NewValidation("invalid transaction type").WithDetail("type", string(t.Type))
	}
	if !t.Status.IsValid() {
		return apperror.NewValidation("invalid transaction status").WithDetail("status", string(t.Status))
	}
	switch t.Type {
	case TypeSale:
		if t.ClientID == nil || t.ProviderID != nil {
			return apperror.NewValidation("a sale references a client and no provider")
		}
	case TypePurchase:
		if t.ProviderID == nil || t.ClientID != nil {
			return apperror.NewValidation("a purchase references a provider and no client")
		}
	}
	if len(t.ReferenceNumber) > 100 {
		return apperror.NewValidation("reference number too long").WithDetail("max", 100)
	}
	return nil
}

// Verify recomputes every subtotal and the total and returns
// INCONSISTENT_TOTAL when the stored values disagree.
func (t *Transaction) Verify() error {
	subtotals := make([]types.Money, len(t.Lines))
	for i, l := range t.Lines {
		subtotals[i] = l.Subtotal
		want := pricing.Subtotal(l.UnitPrice, l.Quantity)
		if !want.Equal(l.Subtotal) {
			return apperror.NewInconsistentTotal(t.ID.String(), l.Subtotal.StringFixed(types.MoneyScale), want.StringFixed(types.MoneyScale)).
				WithDetail("line_no", l.LineNo)
		}
	}
	computed := pricing.SumSubtotals(subtotals...)
	if !computed.Equal(t.TotalAmount) {
		return apperror.NewInconsistentTotal(t.ID.String(), t.TotalAmount.StringFixed(types.MoneyScale), computed.StringFixed(types.MoneyScale))
	}
	return nil
}
