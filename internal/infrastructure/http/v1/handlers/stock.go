package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgercore/internal/domain/stock"
	"ledgercore/internal/infrastructure/http/v1/dto"
)

const defaultMovementLimit = 50

// StockHandler serves the stock endpoints nested under /products/:id.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Adjust handles POST /products/:id/stock-adjustments
func (h *StockHandler) Adjust(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.StockAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.AdjustStock(c.Request.Context(), stock.AdjustCommand{
		TenantID:  h.TenantID(c),
		ProductID: productID,
		Delta:     *req.Delta,
		Reason:    req.Reason,
		UserID:    h.UserID(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromAdjustment(result))
}

// GetStock handles GET /products/:id/stock
func (h *StockHandler) GetStock(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}

	level, err := h.service.GetStock(c.Request.Context(), h.TenantID(c), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockLevel(level))
}

// ListMovements handles GET /products/:id/movements?limit=N
func (h *StockHandler) ListMovements(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", defaultMovementLimit)
	movements, err := h.service.ListMovements(c.Request.Context(), h.TenantID(c), productID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovements(movements, limit))
}
