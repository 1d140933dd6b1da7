package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain"
	"ledgercore/internal/infrastructure/http/v1/dto"
)

// VersionedRequest is an update body that names the version it was based on.
type VersionedRequest interface {
	ExpectedVersion() int
}

// CatalogHandler provides generic HTTP handlers for catalog entities.
// Every lookup is scoped by the caller's tenant.
type CatalogHandler[T domain.Entity, CreateDTO any, UpdateDTO VersionedRequest] struct {
	*BaseHandler
	service    *domain.CatalogService[T]
	entityName string

	mapCreateDTO func(req *CreateDTO, tenantID id.ID) T
	mapUpdateDTO func(req *UpdateDTO, existing T)
	mapToDTO     func(entity T) any
	create       func(c *gin.Context, entity T, req *CreateDTO) error
}

// CatalogHandlerConfig configures the catalog handler.
// Create is optional and replaces the plain service create.
type CatalogHandlerConfig[T domain.Entity, CreateDTO any, UpdateDTO VersionedRequest] struct {
	Service      *domain.CatalogService[T]
	EntityName   string
	MapCreateDTO func(req *CreateDTO, tenantID id.ID) T
	MapUpdateDTO func(req *UpdateDTO, existing T)
	MapToDTO     func(entity T) any
	Create       func(c *gin.Context, entity T, req *CreateDTO) error
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler[T domain.Entity, CreateDTO any, UpdateDTO VersionedRequest](
	base *BaseHandler,
	cfg CatalogHandlerConfig[T, CreateDTO, UpdateDTO],
) *CatalogHandler[T, CreateDTO, UpdateDTO] {
	h := &CatalogHandler[T, CreateDTO, UpdateDTO]{
		BaseHandler:  base,
		service:      cfg.Service,
		entityName:   cfg.EntityName,
		mapCreateDTO: cfg.MapCreateDTO,
		mapUpdateDTO: cfg.MapUpdateDTO,
		mapToDTO:     cfg.MapToDTO,
		create:       cfg.Create,
	}
	if h.create == nil {
		h.create = func(c *gin.Context, entity T, _ *CreateDTO) error {
			return h.service.Create(c.Request.Context(), entity)
		}
	}
	return h
}

// Create handles POST /{entity}.
func (h *CatalogHandler[T, CreateDTO, UpdateDTO]) Create(c *gin.Context) {
	var req CreateDTO
	if !h.BindJSON(c, &req) {
		return
	}

	entity := h.mapCreateDTO(&req, h.TenantID(c))
	if err := h.create(c, entity, &req); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, h.mapToDTO(entity))
}

// Get handles GET /{entity}/:id.
func (h *CatalogHandler[T, CreateDTO, UpdateDTO]) Get(c *gin.Context) {
	entityID, ok := h.ParseID(c)
	if !ok {
		return
	}

	entity, err := h.service.GetByID(c.Request.Context(), h.TenantID(c), entityID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, h.mapToDTO(entity))
}

// Update handles PUT /{entity}/:id. The body must name the version it was
// read at.
func (h *CatalogHandler[T, CreateDTO, UpdateDTO]) Update(c *gin.Context) {
	ctx := c.Request.Context()

	entityID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req UpdateDTO
	if !h.BindJSON(c, &req) {
		return
	}

	existing, err := h.service.GetByID(ctx, h.TenantID(c), entityID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := checkVersion(h.entityName, entityID, req.ExpectedVersion(), existing.GetVersion()); err != nil {
		h.Error(c, err)
		return
	}

	h.mapUpdateDTO(&req, existing)

	if err := h.service.Update(ctx, existing); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, h.mapToDTO(existing))
}

// SetActive handles PATCH /{entity}/:id/active.
func (h *CatalogHandler[T, CreateDTO, UpdateDTO]) SetActive(c *gin.Context) {
	ctx := c.Request.Context()

	entityID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.SetActiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tenantID := h.TenantID(c)
	if err := h.service.SetActive(ctx, tenantID, entityID, *req.IsActive); err != nil {
		h.Error(c, err)
		return
	}

	entity, err := h.service.GetByID(ctx, tenantID, entityID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.mapToDTO(entity))
}

func checkVersion(entityName string, entityID id.ID, expected, actual int) error {
	if expected == actual {
		return nil
	}
	return apperror.NewConcurrentModification(entityName, entityID.String()).
		WithDetail("expected_version", expected).
		WithDetail("actual_version", actual)
}
