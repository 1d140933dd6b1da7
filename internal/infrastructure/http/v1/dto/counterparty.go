package dto

import (
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/catalogs/counterparty"
)

// --- Request DTOs ---

// CounterpartyRequest holds the fields clients and providers share.
type CounterpartyRequest struct {
	Name       string            `json:"name" binding:"required"`
	TaxID      *string           `json:"taxId"`
	Email      *string           `json:"email"`
	Phone      *string           `json:"phone"`
	Address    *string           `json:"address"`
	Attributes entity.Attributes `json:"attributes"`
}

func (r *CounterpartyRequest) applyTo(c *counterparty.Counterparty) {
	c.Name = r.Name
	c.TaxID = r.TaxID
	c.Email = r.Email
	c.Phone = r.Phone
	c.Address = r.Address
	c.Attributes = r.Attributes
}

// CreateClientRequest is the request body for creating a client.
type CreateClientRequest struct {
	CounterpartyRequest
}

// ToEntity converts DTO to domain entity.
func (r *CreateClientRequest) ToEntity(tenantID id.ID) *counterparty.Client {
	c := counterparty.NewClient(tenantID, r.Name)
	r.applyTo(&c.Counterparty)
	return c
}

// UpdateClientRequest is the request body for updating a client.
type UpdateClientRequest struct {
	CounterpartyRequest
	Version int `json:"version" binding:"required"`
}

func (r UpdateClientRequest) ExpectedVersion() int { return r.Version }

// ApplyTo applies update DTO to existing entity.
func (r *UpdateClientRequest) ApplyTo(c *counterparty.Client) {
	r.applyTo(&c.Counterparty)
}

// CreateProviderRequest is the request body for creating a provider.
type CreateProviderRequest struct {
	CounterpartyRequest
	ContactPerson *string `json:"contactPerson"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateProviderRequest) ToEntity(tenantID id.ID) *counterparty.Provider {
	p := counterparty.NewProvider(tenantID, r.Name)
	r.applyTo(&p.Counterparty)
	p.ContactPerson = r.ContactPerson
	return p
}

// UpdateProviderRequest is the request body for updating a provider.
type UpdateProviderRequest struct {
	CounterpartyRequest
	ContactPerson *string `json:"contactPerson"`
	Version       int     `json:"version" binding:"required"`
}

func (r UpdateProviderRequest) ExpectedVersion() int { return r.Version }

// ApplyTo applies update DTO to existing entity.
func (r *UpdateProviderRequest) ApplyTo(p *counterparty.Provider) {
	r.applyTo(&p.Counterparty)
	p.ContactPerson = r.ContactPerson
}

// --- Response DTOs ---

// ClientResponse is the response for a client.
type ClientResponse struct {
	BaseResponse
	Name     string  `json:"name"`
	TaxID    *string `json:"taxId,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	IsActive bool    `json:"isActive"`
}

func counterpartyResponse(c counterparty.Counterparty) ClientResponse {
	return ClientResponse{
		BaseResponse: baseResponse(c.BaseEntity),
		Name:         c.Name,
		TaxID:        c.TaxID,
		Email:        c.Email,
		Phone:        c.Phone,
		Address:      c.Address,
		IsActive:     c.IsActive,
	}
}

// FromClient converts domain entity to response DTO.
func FromClient(c *counterparty.Client) ClientResponse {
	return counterpartyResponse(c.Counterparty)
}

// ProviderResponse is the response for a provider.
type ProviderResponse struct {
	ClientResponse
	ContactPerson *string `json:"contactPerson,omitempty"`
}

// FromProvider converts domain entity to response DTO.
func FromProvider(p *counterparty.Provider) ProviderResponse {
	return ProviderResponse{
		ClientResponse: counterpartyResponse(p.Counterparty),
		ContactPerson:  p.ContactPerson,
	}
}
