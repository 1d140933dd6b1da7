package handlers

import (
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/infrastructure/http/v1/dto"
)

// ClientHTTPHandler serves /clients.
type ClientHTTPHandler = CatalogHandler[
	*counterparty.Client,
	dto.CreateClientRequest,
	dto.UpdateClientRequest,
]

// NewClientHandler wires the generic catalog handler to the client catalog.
func NewClientHandler(base *BaseHandler, service *counterparty.ClientService) *ClientHTTPHandler {
	return NewCatalogHandler(base, CatalogHandlerConfig[
		*counterparty.Client,
		dto.CreateClientRequest,
		dto.UpdateClientRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "client",
		MapCreateDTO: func(req *dto.CreateClientRequest, tenantID id.ID) *counterparty.Client {
			return req.ToEntity(tenantID)
		},
		MapUpdateDTO: func(req *dto.UpdateClientRequest, existing *counterparty.Client) {
			req.ApplyTo(existing)
		},
		MapToDTO: func(c *counterparty.Client) any {
			return dto.FromClient(c)
		},
	})
}

// ProviderHTTPHandler serves /providers.
type ProviderHTTPHandler = CatalogHandler[
	*counterparty.Provider,
	dto.CreateProviderRequest,
	dto.UpdateProviderRequest,
]

// NewProviderHandler wires the generic catalog handler to the provider catalog.
func NewProviderHandler(base *BaseHandler, service *counterparty.ProviderService) *ProviderHTTPHandler {
	return NewCatalogHandler(base, CatalogHandlerConfig[
		*counterparty.Provider,
		dto.CreateProviderRequest,
		dto.UpdateProviderRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "provider",
		MapCreateDTO: func(req *dto.CreateProviderRequest, tenantID id.ID) *counterparty.Provider {
			return req.ToEntity(tenantID)
		},
		MapUpdateDTO: func(req *dto.UpdateProviderRequest, existing *counterparty.Provider) {
			req.ApplyTo(existing)
		},
		MapToDTO: func(p *counterparty.Provider) any {
			return dto.FromProvider(p)
		},
	})
}
