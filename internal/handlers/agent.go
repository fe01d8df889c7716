// internal/handlers/agent.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/neuralnex/legionx-backend/internal/services"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

type AgentHandler struct {
	agentService *services.AgentService
}

func NewAgentHandler(agentService *services.AgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

func (h *AgentHandler) Create(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	agent, err := h.agentService.Create(ownerID, &req)
	if err != nil {
		if errs := utils.GetValidationErrors(err); len(errs) > 0 {
			utils.ValidationErrorResponse(c, errs)
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, agent)
}

func (h *AgentHandler) Update(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid agent ID", nil)
		return
	}

	var req services.UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	agent, err := h.agentService.Update(agentID, ownerID, &req)
	if err != nil {
		if errs := utils.GetValidationErrors(err); len(errs) > 0 {
			utils.ValidationErrorResponse(c, errs)
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, agent)
}

func (h *AgentHandler) Get(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid agent ID", nil)
		return
	}

	agent, err := h.agentService.Get(agentID)
	if err != nil {
		utils.NotFoundResponse(c, "agent")
		return
	}

	utils.SuccessResponse(c, agent)
}

func (h *AgentHandler) ListMine(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	agents, total, err := h.agentService.ListForOwner(ownerID, params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch agents")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(agents, total, params))
}
