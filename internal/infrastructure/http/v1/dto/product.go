package dto

import (
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/product"
)

// --- Request DTOs ---

// CreateProductRequest is the request body for creating a product.
// Stock is the opening balance, booked through the stock ledger.
type CreateProductRequest struct {
	SKU           *string           `json:"sku"`
	Name          string            `json:"name" binding:"required"`
	Description   *string           `json:"description"`
	PurchasePrice *types.Money      `json:"purchasePrice"`
	SalePrice     *types.Money      `json:"salePrice"`
	Stock         int64             `json:"stock"`
	UnitOfMeasure string            `json:"unitOfMeasure"`
	Category      *string           `json:"category"`
	Attributes    entity.Attributes `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateProductRequest) ToEntity(tenantID id.ID) *product.Product {
	p := product.NewProduct(tenantID, r.Name)
	p.SKU = r.SKU
	p.Description = r.Description
	if r.PurchasePrice != nil {
		p.PurchasePrice = *r.PurchasePrice
	}
	if r.SalePrice != nil {
		p.SalePrice = *r.SalePrice
	}
	if r.UnitOfMeasure != "" {
		p.UnitOfMeasure = r.UnitOfMeasure
	}
	p.Category = r.Category
	p.Attributes = r.Attributes
	return p
}

// UpdateProductRequest is the request body for updating a product.
// Stock cannot be changed here; use a stock adjustment.
type UpdateProductRequest struct {
	SKU           *string           `json:"sku"`
	Name          string            `json:"name" binding:"required"`
	Description   *string           `json:"description"`
	PurchasePrice types.Money       `json:"purchasePrice"`
	SalePrice     types.Money       `json:"salePrice"`
	UnitOfMeasure string            `json:"unitOfMeasure"`
	Category      *string           `json:"category"`
	Attributes    entity.Attributes `json:"attributes"`
	Version       int               `json:"version" binding:"required"`
}

func (r UpdateProductRequest) ExpectedVersion() int { return r.Version }

// ApplyTo applies update DTO to existing entity.
func (r *UpdateProductRequest) ApplyTo(p *product.Product) {
	p.SKU = r.SKU
	p.Name = r.Name
	p.Description = r.Description
	p.PurchasePrice = r.PurchasePrice
	p.SalePrice = r.SalePrice
	p.UnitOfMeasure = r.UnitOfMeasure
	p.Category = r.Category
	p.Attributes = r.Attributes
}

// --- Response DTOs ---

// ProductResponse is the response for a product.
type ProductResponse struct {
	BaseResponse
	SKU           *string `json:"sku,omitempty"`
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	PurchasePrice string  `json:"purchasePrice"`
	SalePrice     string  `json:"salePrice"`
	Stock         int64   `json:"stock"`
	UnitOfMeasure string  `json:"unitOfMeasure"`
	Category      *string `json:"category,omitempty"`
	IsActive      bool    `json:"isActive"`
}

// FromProduct converts domain entity to response DTO.
func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		BaseResponse:  baseResponse(p.BaseEntity),
		SKU:           p.SKU,
		Name:          p.Name,
		Description:   p.Description,
		PurchasePrice: Money(p.PurchasePrice),
		SalePrice:     Money(p.SalePrice),
		Stock:         p.Stock,
		UnitOfMeasure: p.UnitOfMeasure,
		Category:      p.Category,
		IsActive:      p.IsActive,
	}
}
