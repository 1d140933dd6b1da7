// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
)

// --- Base DTOs ---

// BaseResponse contains common response fields.
type BaseResponse struct {
	ID         id.ID             `json:"id"`
	Version    int               `json:"version"`
	Attributes entity.Attributes `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func baseResponse(b entity.BaseEntity) BaseResponse {
	return BaseResponse{
		ID:         b.ID,
		Version:    b.Version,
		Attributes: b.Attributes,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

// SetActiveRequest is the body of PATCH /{catalog}/:id/active.
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// Money renders an amount with the fixed monetary scale ("12.50").
func Money(m types.Money) string {
	return m.StringFixed(types.MoneyScale)
}
