package dto

import (
	"time"

	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/stock"
)

// StockAdjustmentRequest is the body of POST /products/:id/stock-adjustments.
// Delta is signed; zero is rejected by the ledger.
type StockAdjustmentRequest struct {
	Delta  *int64 `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

// StockAdjustmentResponse is the result of an adjustment.
type StockAdjustmentResponse struct {
	ProductID  id.ID `json:"productId"`
	Delta      int64 `json:"delta"`
	StockAfter int64 `json:"stockAfter"`
}

// FromAdjustment converts the ledger result to response DTO.
func FromAdjustment(a *stock.Adjustment) StockAdjustmentResponse {
	return StockAdjustmentResponse{
		ProductID:  a.ProductID,
		Delta:      a.Delta,
		StockAfter: a.StockAfter,
	}
}

// StockLevelResponse is the current stock of a product.
type StockLevelResponse struct {
	ProductID id.ID   `json:"productId"`
	SKU       *string `json:"sku,omitempty"`
	Stock     int64   `json:"stock"`
	IsActive  bool    `json:"isActive"`
	Version   int     `json:"version"`
}

// FromStockLevel converts a level to response DTO.
func FromStockLevel(l stock.Level) StockLevelResponse {
	return StockLevelResponse{
		ProductID: l.ProductID,
		SKU:       l.SKU,
		Stock:     l.Stock,
		IsActive:  l.IsActive,
		Version:   l.Version,
	}
}

// MovementResponse is one journaled stock change.
type MovementResponse struct {
	ID            id.ID        `json:"id"`
	ProductID     id.ID        `json:"productId"`
	Delta         int64        `json:"delta"`
	StockAfter    int64        `json:"stockAfter"`
	Source        stock.Source `json:"source"`
	TransactionID *id.ID       `json:"transactionId,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	CreatedBy     *id.ID       `json:"createdBy,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// MovementListResponse wraps a product's journal.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Limit int                `json:"limit"`
}

// FromMovements converts journal rows to response DTOs.
func FromMovements(ms []stock.Movement, limit int) MovementListResponse {
	items := make([]MovementResponse, len(ms))
	for i, m := range ms {
		items[i] = MovementResponse{
			ID:            m.ID,
			ProductID:     m.ProductID,
			Delta:         m.Delta,
			StockAfter:    m.StockAfter,
			Source:        m.Source,
			TransactionID: m.TransactionID,
			Reason:        m.Reason,
			CreatedBy:     m.CreatedBy,
			CreatedAt:     m.CreatedAt,
		}
	}
	return MovementListResponse{Items: items, Limit: limit}
}
