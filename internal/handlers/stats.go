// internal/handlers/stats.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/neuralnex/legionx-backend/internal/models"
	"github.com/neuralnex/legionx-backend/internal/services"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

type StatsHandler struct {
	db         *gorm.DB
	feeService *services.FeeService
	alerts     *services.AlertService
}

func NewStatsHandler(db *gorm.DB, feeService *services.FeeService, alerts *services.AlertService) *StatsHandler {
	return &StatsHandler{db: db, feeService: feeService, alerts: alerts}
}

func (h *StatsHandler) Platform(c *gin.Context) {
	var stats struct {
		TotalUsers        int64 `json:"total_users"`
		ActiveListings    int64 `json:"active_listings"`
		SoldListings      int64 `json:"sold_listings"`
		PendingIntents    int64 `json:"pending_intents"`
		VerifiedIntents   int64 `json:"verified_intents"`
		RejectedIntents   int64 `json:"rejected_intents"`
		TotalEntitlements int64 `json:"total_entitlements"`
	}

	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.Listing{}).Where("state = ?", models.ListingStateActive).Count(&stats.ActiveListings)
	h.db.Model(&models.Listing{}).Where("state = ?", models.ListingStateSold).Count(&stats.SoldListings)
	h.db.Model(&models.PurchaseIntent{}).Where("status = ?", models.IntentStatusPending).Count(&stats.PendingIntents)
	h.db.Model(&models.PurchaseIntent{}).Where("status = ?", models.IntentStatusVerified).Count(&stats.VerifiedIntents)
	h.db.Model(&models.PurchaseIntent{}).Where("status = ?", models.IntentStatusRejected).Count(&stats.RejectedIntents)
	h.db.Model(&models.Entitlement{}).Count(&stats.TotalEntitlements)

	utils.SuccessResponse(c, stats)
}

func (h *StatsHandler) Fees(c *gin.Context) {
	totals, err := h.feeService.PlatformTotals()
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to compute fee totals")
		return
	}

	utils.SuccessResponse(c, totals)
}

func (h *StatsHandler) Alerts(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	unresolvedOnly := c.DefaultQuery("unresolved", "true") == "true"

	alerts, total, err := h.alerts.List(params, unresolvedOnly)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch alerts")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(alerts, total, params))
}
