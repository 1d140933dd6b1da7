// Package counterparty provides the Client and Provider catalogs: the
// parties on the other side of a sale or a purchase.
package counterparty

import (
	"context"
	"strings"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/pkg/validator"
)

// Counterparty holds the fields clients and providers share.
type Counterparty struct {
	entity.BaseEntity

	Name     string  `db:"name" json:"name" validate:"required,max=255"`
	TaxID    *string `db:"tax_id" json:"taxId,omitempty" validate:"omitempty,max=20"`
	Email    *string `db:"email" json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone    *string `db:"phone" json:"phone,omitempty" validate:"omitempty,max=50"`
	Address  *string `db:"address" json:"address,omitempty"`
	IsActive bool    `db:"is_active" json:"isActive"`
}

func newCounterparty(tenantID id.ID, name string) Counterparty {
	return Counterparty{
		BaseEntity: entity.NewBaseEntity(tenantID, time.Now()),
		Name:       name,
		IsActive:   true,
	}
}

func (c *Counterparty) normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.TaxID = trimOptional(c.TaxID)
	c.Email = trimOptional(c.Email)
	c.Phone = trimOptional(c.Phone)
	c.Address = trimOptional(c.Address)
}

// Client is the counterparty of a sale.
type Client struct {
	Counterparty
}

// NewClient creates an active client.
func NewClient(tenantID id.ID, name string) *Client {
	return &Client{Counterparty: newCounterparty(tenantID, name)}
}

// Validate implements domain.Entity.
func (c *Client) Validate(_ context.Context) error {
	c.normalize()
	if id.IsNil(c.TenantID) {
		return apperror.NewValidation("tenant is required").WithDetail("field", "tenantId")
	}
	return validator.Check(c)
}

// Provider is the counterparty of a purchase.
type Provider struct {
	Counterparty

	ContactPerson *string `db:"contact_person" json:"contactPerson,omitempty" validate:"omitempty,max=150"`
}

// NewProvider creates an active provider.
func NewProvider(tenantID id.ID, name string) *Provider {
	return &Provider{Counterparty: newCounterparty(tenantID, name)}
}

// Validate implements domain.Entity.
func (p *Provider) Validate(_ context.Context) error {
	p.normalize()
	p.ContactPerson = trimOptional(p.ContactPerson)
	if id.IsNil(p.TenantID) {
		return apperror.NewValidation("tenant is required").WithDetail("field", "tenantId")
	}
	return validator.Check(p)
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
