package counterparty

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/domain"
	"ledgercore/pkg/logger"
)

// ClientService provides business logic for the Client catalog.
type ClientService struct {
	*domain.CatalogService[*Client]
}

// NewClientService creates a new Client service.
func NewClientService(repo ClientRepository, base domain.CatalogServiceConfig[*Client]) *ClientService {
	base.Repo = repo
	if base.EntityName == "" {
		base.EntityName = "client"
	}
	svc := &ClientService{CatalogService: domain.NewCatalogService(base)}
	svc.Hooks().OnAfterCreate(func(ctx context.Context, c *Client) error {
		logger.Info(ctx, "client created", "client_id", c.ID)
		return nil
	})
	return svc
}

// ProviderService provides business logic for the Provider catalog.
type ProviderService struct {
	*domain.CatalogService[*Provider]
	repo ProviderRepository
}

// NewProviderService creates a new Provider service.
func NewProviderService(repo ProviderRepository, base domain.CatalogServiceConfig[*Provider]) *ProviderService {
	base.Repo = repo
	if base.EntityName == "" {
		base.EntityName = "provider"
	}
	svc := &ProviderService{
		CatalogService: domain.NewCatalogService(base),
		repo:           repo,
	}

	svc.Hooks().OnBeforeCreate(svc.checkTaxID)
	svc.Hooks().OnBeforeUpdate(svc.checkTaxID)
	svc.Hooks().OnAfterCreate(func(ctx context.Context, p *Provider) error {
		logger.Info(ctx, "provider created", "provider_id", p.ID)
		return nil
	})
	return svc
}

// checkTaxID keeps provider tax ids unique per tenant.
func (s *ProviderService) checkTaxID(ctx context.Context, p *Provider) error {
	if p.TaxID == nil {
		return nil
	}
	exists, err := s.repo.ExistsByTaxID(ctx, p.TenantID, *p.TaxID, p.ID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewDuplicate("provider", "taxId", *p.TaxID)
	}
	return nil
}
