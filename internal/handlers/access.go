// internal/handlers/access.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/neuralnex/legionx-backend/internal/services"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

type AccessHandler struct {
	entitlements *services.EntitlementService
	agents       *services.AgentService
	storage      *services.StorageService
}

func NewAccessHandler(entitlements *services.EntitlementService, agents *services.AgentService, storage *services.StorageService) *AccessHandler {
	return &AccessHandler{
		entitlements: entitlements,
		agents:       agents,
		storage:      storage,
	}
}

func (h *AccessHandler) Check(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	subjectID, err := uuid.Parse(c.Param("subjectID"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid subject ID", nil)
		return
	}

	hasAccess, err := h.entitlements.HasAccess(userID, subjectID, time.Now())
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to check access")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"subject_id": subjectID,
		"has_access": hasAccess,
	})
}

// Credential issues a signed access credential for a live entitlement,
// with a presigned artifact URL when the subject agent carries one.
func (h *AccessHandler) Credential(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	subjectID, err := uuid.Parse(c.Param("subjectID"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid subject ID", nil)
		return
	}

	now := time.Now()
	entitlement, err := h.entitlements.ActiveEntitlement(userID, subjectID, now)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to look up entitlement")
		return
	}
	if entitlement == nil {
		utils.ForbiddenResponse(c, "No active entitlement for this subject")
		return
	}

	// Owned access gets a bounded credential too; the buyer re-requests as
	// needed.
	expiresAt := now.Add(24 * time.Hour)
	if entitlement.ExpiresAt != nil && entitlement.ExpiresAt.Before(expiresAt) {
		expiresAt = *entitlement.ExpiresAt
	}

	credential, err := utils.GenerateAccessCredential(userID, subjectID, string(entitlement.Kind), expiresAt)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to issue credential")
		return
	}

	response := gin.H{
		"credential": credential,
		"kind":       entitlement.Kind,
		"expires_at": expiresAt,
	}

	if agent, err := h.agents.Get(subjectID); err == nil && agent.ArtifactKey != "" {
		if url, err := h.storage.ArtifactURL(agent.ArtifactKey); err == nil && url != "" {
			response["artifact_url"] = url
		}
	}

	utils.SuccessResponse(c, response)
}

func (h *AccessHandler) ListEntitlements(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	entitlements, total, err := h.entitlements.ListForUser(userID, params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch entitlements")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(entitlements, total, params))
}
