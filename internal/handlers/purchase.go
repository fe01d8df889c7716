// internal/handlers/purchase.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/neuralnex/legionx-backend/internal/services"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

type PurchaseHandler struct {
	reconciliation *services.ReconciliationService
}

func NewPurchaseHandler(reconciliation *services.ReconciliationService) *PurchaseHandler {
	return &PurchaseHandler{reconciliation: reconciliation}
}

func (h *PurchaseHandler) Create(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	result, err := h.reconciliation.CreateIntent(c.Request.Context(), buyerID, &req)
	if err != nil {
		if errs := utils.GetValidationErrors(err); len(errs) > 0 {
			utils.ValidationErrorResponse(c, errs)
			return
		}
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}

func (h *PurchaseHandler) List(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	intents, total, err := h.reconciliation.GetHistory(buyerID, params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch purchases")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(intents, total, params))
}

func (h *PurchaseHandler) Get(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	intentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid purchase ID", nil)
		return
	}

	intent, err := h.reconciliation.Get(intentID, buyerID)
	if err != nil {
		utils.NotFoundResponse(c, "purchase")
		return
	}

	utils.SuccessResponse(c, intent)
}

func (h *PurchaseHandler) Cancel(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	intentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid purchase ID", nil)
		return
	}

	intent, err := h.reconciliation.Cancel(intentID, buyerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, intent)
}

// SettleChain accepts an authenticated chain settlement signal. Transient
// conditions surface as 202 with the intent still pending; the poller keeps
// retrying in the background either way.
func (h *PurchaseHandler) SettleChain(c *gin.Context) {
	var req struct {
		TxHash string `json:"tx_hash" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	intent, err := h.reconciliation.ProcessChainSettlement(c.Request.Context(), req.TxHash)
	if err != nil {
		if intent != nil {
			// Transient: report current state rather than an error.
			utils.AcceptedResponse(c, intent)
			return
		}
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, intent)
}
