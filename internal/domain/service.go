package domain

import (
	"context"
	"fmt"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/tx"
	"ledgercore/pkg/logger"
)

// CatalogService provides business logic for catalog entities.
type CatalogService[T Entity] struct {
	repo      CatalogRepository[T]
	txManager tx.Manager
	hooks     *HookRegistry[T]

	// entityName for error messages and logs
	entityName string
}

// CatalogServiceConfig configures the catalog service.
type CatalogServiceConfig[T Entity] struct {
	Repo       CatalogRepository[T]
	TxManager  tx.Manager
	EntityName string
}

// NewCatalogService creates a new catalog service.
func NewCatalogService[T Entity](cfg CatalogServiceConfig[T]) *CatalogService[T] {
	return &CatalogService[T]{
		repo:       cfg.Repo,
		txManager:  cfg.TxManager,
		hooks:      NewHookRegistry[T](),
		entityName: cfg.EntityName,
	}
}

// Hooks returns the hook registry for external registration.
func (s *CatalogService[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

// TxManager returns the transaction manager the service writes through.
func (s *CatalogService[T]) TxManager() tx.Manager {
	return s.txManager
}

func (s *CatalogService[T]) normalizeValidationErr(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

func (s *CatalogService[T]) normalizeGetErr(err error, entityID id.ID) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.entityName, entityID.String())
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", s.entityName).WithDetail("id", entityID.String())
}

// Create validates and inserts a new entity. Before-create hooks run inside
// the transaction so their checks see the same snapshot as the insert.
func (s *CatalogService[T]) Create(ctx context.Context, entity T) error {
	if err := entity.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, BeforeCreate, entity); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, entity); err != nil {
			return fmt.Errorf("create %s: %w", s.entityName, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, AfterCreate, entity); err != nil {
		logger.Warn(ctx, "after-create hook failed", "entity", s.entityName, "id", entity.GetID(), "error", err)
	}
	return nil
}

// GetByID retrieves an entity of tenantID.
func (s *CatalogService[T]) GetByID(ctx context.Context, tenantID, entityID id.ID) (T, error) {
	entity, err := s.repo.GetByID(ctx, tenantID, entityID)
	if err != nil {
		return entity, s.normalizeGetErr(err, entityID)
	}
	return entity, nil
}

// Update validates and writes an entity loaded earlier through GetByID.
func (s *CatalogService[T]) Update(ctx context.Context, entity T) error {
	if err := entity.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, BeforeUpdate, entity); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, entity); err != nil {
			if apperror.IsAppError(err) {
				return err
			}
			return fmt.Errorf("update %s: %w", s.entityName, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, AfterUpdate, entity); err != nil {
		logger.Warn(ctx, "after-update hook failed", "entity", s.entityName, "id", entity.GetID(), "error", err)
	}
	return nil
}

// SetActive activates or deactivates an entity.
func (s *CatalogService[T]) SetActive(ctx context.Context, tenantID, entityID id.ID, active bool) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetActive(ctx, tenantID, entityID, active)
	})
	if err != nil {
		return s.normalizeGetErr(err, entityID)
	}
	logger.Info(ctx, s.entityName+" active flag changed", "id", entityID, "active", active)
	return nil
}
