// internal/handlers/webhook.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/neuralnex/legionx-backend/internal/apperrors"
	"github.com/neuralnex/legionx-backend/internal/services"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

type WebhookHandler struct {
	reconciliation *services.ReconciliationService
}

func NewWebhookHandler(reconciliation *services.ReconciliationService) *WebhookHandler {
	return &WebhookHandler{reconciliation: reconciliation}
}

// Stripe receives payment gateway webhooks. The gateway retries on
// non-2xx, so only signature failures and unknown references are refused;
// everything the engine has already settled acknowledges idempotently.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read webhook payload", nil)
		return
	}

	signature := c.GetHeader("Stripe-Signature")

	intent, err := h.reconciliation.ProcessGatewayWebhook(payload, signature)
	if err != nil {
		switch apperrors.CodeOf(err) {
		case apperrors.ErrSignatureInvalid.Code:
			utils.ErrorResponse(c, http.StatusBadRequest, apperrors.ErrSignatureInvalid.Code, "webhook signature verification failed", nil)
		case apperrors.ErrUnknownReference.Code:
			utils.ErrorResponse(c, http.StatusNotFound, apperrors.ErrUnknownReference.Code, "no purchase intent for reference", nil)
		default:
			logrus.WithError(err).Error("Webhook processing failed")
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	if intent == nil {
		// Verified but not a settlement event.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "status": intent.Status})
}
