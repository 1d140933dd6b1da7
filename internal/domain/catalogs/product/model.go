// Package product provides the Product catalog. A product's stock counter is
// owned by the stock ledger; this package never writes it.
package product

import (
	"context"
	"strings"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/pkg/validator"
)

// DefaultUnitOfMeasure is used when a product is created without one.
const DefaultUnitOfMeasure = "unidad"

// Product is a stock-keeping item of a tenant.
type Product struct {
	entity.BaseEntity

	// SKU is unique per tenant when present.
	SKU *string `db:"sku" json:"sku,omitempty" validate:"omitempty,max=100"`

	Name        string  `db:"name" json:"name" validate:"required,max=255"`
	Description *string `db:"description" json:"description,omitempty"`

	PurchasePrice types.Money `db:"purchase_price" json:"purchasePrice" validate:"money_nonneg"`
	SalePrice     types.Money `db:"sale_price" json:"salePrice" validate:"money_nonneg"`

	// Stock is read-only here; see stock.Ledger.
	Stock int64 `db:"stock" json:"stock"`

	UnitOfMeasure string  `db:"unit_of_measure" json:"unitOfMeasure" validate:"required,max=50"`
	Category      *string `db:"category" json:"category,omitempty" validate:"omitempty,max=100"`
	IsActive      bool    `db:"is_active" json:"isActive"`
}

// NewProduct creates an active product with zero stock.
func NewProduct(tenantID id.ID, name string) *Product {
	return &Product{
		BaseEntity:    entity.NewBaseEntity(tenantID, time.Now()),
		Name:          name,
		PurchasePrice: types.Zero(),
		SalePrice:     types.Zero(),
		UnitOfMeasure: DefaultUnitOfMeasure,
		IsActive:      true,
	}
}

// Normalize trims text fields and turns empty optional strings into nil.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = trimOptional(p.SKU)
	p.Category = trimOptional(p.Category)
	p.UnitOfMeasure = strings.TrimSpace(p.UnitOfMeasure)
	if p.UnitOfMeasure == "" {
		p.UnitOfMeasure = DefaultUnitOfMeasure
	}
}

// Validate implements domain.Entity.
func (p *Product) Validate(_ context.Context) error {
	p.Normalize()
	if id.IsNil(p.TenantID) {
		return apperror.NewValidation("tenant is required").WithDetail("field", "tenantId")
	}
	return validator.Check(p)
}

// SKUValue returns the SKU or "".
func (p *Product) SKUValue() string {
	if p.SKU == nil {
		return ""
	}
	return *p.SKU
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
