package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/transaction"
	"ledgercore/internal/infrastructure/http/v1/dto"
)

// TransactionHandler serves /transactions.
type TransactionHandler struct {
	*BaseHandler
	service *transaction.Service
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(base *BaseHandler, service *transaction.Service) *TransactionHandler {
	return &TransactionHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /transactions
func (h *TransactionHandler) Create(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	userID := id.Nil()
	if uid := h.UserID(c); uid != nil {
		userID = *uid
	}

	cmd, err := req.ToCommand(h.TenantID(c), userID)
	if err != nil {
		h.Error(c, err)
		return
	}

	t, err := h.service.CreateTransaction(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromTransaction(t))
}

// Get handles GET /transactions/:id
func (h *TransactionHandler) Get(c *gin.Context) {
	transactionID, ok := h.ParseID(c)
	if !ok {
		return
	}

	t, err := h.service.GetTransaction(c.Request.Context(), h.TenantID(c), transactionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransaction(t))
}

// Update handles PATCH /transactions/:id
func (h *TransactionHandler) Update(c *gin.Context) {
	transactionID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.UpdateTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, err := h.service.UpdateTransactionDetails(c.Request.Context(), req.ToCommand(h.TenantID(c), transactionID))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransaction(t))
}

// ChangeStatus handles POST /transactions/:id/status
func (h *TransactionHandler) ChangeStatus(c *gin.Context) {
	transactionID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.ChangeStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, err := h.service.ChangeTransactionStatus(c.Request.Context(), h.TenantID(c), transactionID, req.Status)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransaction(t))
}

// Verify handles GET /transactions/:id/verify. A record whose totals
// disagree with its lines fails with INCONSISTENT_TOTAL.
func (h *TransactionHandler) Verify(c *gin.Context) {
	transactionID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.service.VerifyTransaction(c.Request.Context(), h.TenantID(c), transactionID); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.VerifyResponse{TransactionID: transactionID, Consistent: true})
}
