// Package stock is the stock ledger: the only code allowed to change a
// product's stock counter. Every change is applied under row locks inside the
// caller's storage transaction and journaled as a movement.
package stock

import (
	"time"

	"ledgercore/internal/core/id"
)

// Source tells why a movement happened.
type Source string

const (
	SourceSale         Source = "SALE"
	SourcePurchase     Source = "PURCHASE"
	SourceCompletion   Source = "COMPLETION"
	SourceCancellation Source = "CANCELLATION"
	SourceAdjustment   Source = "ADJUSTMENT"
	SourceOpening      Source = "OPENING"
)

// IsCompensating reports whether the movement undoes an earlier one.
func (s Source) IsCompensating() bool {
	return s == SourceCancellation
}

// Delta is a signed change for one product.
type Delta struct {
	ProductID id.ID
	Quantity  int64
}

// Invert returns deltas that undo ds.
func Invert(ds []Delta) []Delta {
	out := make([]Delta, len(ds))
	for i, d := range ds {
		out[i] = Delta{ProductID: d.ProductID, Quantity: -d.Quantity}
	}
	return out
}

// Level is the lockable stock state of a product.
type Level struct {
	ProductID id.ID   `db:"id"`
	TenantID  id.ID   `db:"tenant_id"`
	SKU       *string `db:"sku"`
	Stock     int64   `db:"stock"`
	IsActive  bool    `db:"is_active"`
	Version   int     `db:"version"`
}

// Origin describes who and what caused a batch of deltas.
type Origin struct {
	Source        Source
	TransactionID *id.ID
	Reason        string
	UserID        *id.ID
}

// Movement is one journaled stock change.
type Movement struct {
	ID            id.ID     `db:"id" json:"id"`
	TenantID      id.ID     `db:"tenant_id" json:"tenantId"`
	ProductID     id.ID     `db:"product_id" json:"productId"`
	Delta         int64     `db:"delta" json:"delta"`
	StockAfter    int64     `db:"stock_after" json:"stockAfter"`
	Source        Source    `db:"source" json:"source"`
	TransactionID *id.ID    `db:"transaction_id" json:"transactionId,omitempty"`
	Reason        string    `db:"reason" json:"reason,omitempty"`
	CreatedBy     *id.ID    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
