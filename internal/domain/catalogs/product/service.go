package product

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/stock"
	"ledgercore/pkg/logger"
)

// Service provides business logic for the Product catalog.
type Service struct {
	*domain.CatalogService[*Product]
	repo   Repository
	ledger *stock.Ledger
}

// NewService creates a new Product service.
func NewService(repo Repository, base domain.CatalogServiceConfig[*Product], ledger *stock.Ledger) *Service {
	base.Repo = repo
	if base.EntityName == "" {
		base.EntityName = "product"
	}

	svc := &Service{
		CatalogService: domain.NewCatalogService(base),
		repo:           repo,
		ledger:         ledger,
	}

	svc.Hooks().OnBeforeCreate(svc.checkSKU)
	svc.Hooks().OnBeforeUpdate(svc.checkSKU)

	return svc
}

// CreateWithStock creates a product and books its opening stock through the
// ledger in the same transaction.
func (s *Service) CreateWithStock(ctx context.Context, p *Product, openingStock int64, userID *id.ID) error {
	if openingStock < 0 {
		return apperror.NewValidation("opening stock must not be negative").
			WithDetail("field", "stock")
	}
	p.Stock = 0

	err := s.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.CatalogService.Create(ctx, p); err != nil {
			return err
		}
		if openingStock == 0 {
			return nil
		}
		if _, err := s.ledger.ApplyDelta(ctx, p.TenantID, p.ID, openingStock, stock.Origin{
			Source: stock.SourceOpening,
			UserID: userID,
		}); err != nil {
			return err
		}
		// The ledger bumped the row version; return what is stored.
		stored, err := s.repo.GetByID(ctx, p.TenantID, p.ID)
		if err != nil {
			return err
		}
		p.Stock = stored.Stock
		p.SetStamp(stored.Version, stored.UpdatedAt)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product created", "product_id", p.ID, "sku", p.SKUValue(), "stock", p.Stock)
	return nil
}

// FindByIDs returns the tenant's products among ids.
func (s *Service) FindByIDs(ctx context.Context, tenantID id.ID, ids []id.ID) ([]*Product, error) {
	return s.repo.FindByIDs(ctx, tenantID, ids)
}

func (s *Service) checkSKU(ctx context.Context, p *Product) error {
	if p.SKU == nil {
		return nil
	}
	exists, err := s.repo.ExistsBySKU(ctx, p.TenantID, *p.SKU, p.ID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewDuplicate("product", "sku", *p.SKU)
	}
	return nil
}
