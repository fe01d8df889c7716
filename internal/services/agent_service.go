// internal/services/agent_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/neuralnex/legionx-backend/internal/models"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

// AgentService manages the AI agents sellers attach to their listings.
type AgentService struct {
	db *gorm.DB
}

type CreateAgentRequest struct {
	Name         string                 `json:"name" validate:"required,max=200"`
	Description  string                 `json:"description,omitempty"`
	Endpoint     string                 `json:"endpoint,omitempty" validate:"omitempty,url"`
	Capabilities []string               `json:"capabilities,omitempty"`
	Tags         []string               `json:"tags,omitempty"`
	ArtifactKey  string                 `json:"artifact_key,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

type UpdateAgentRequest struct {
	Name         *string                `json:"name,omitempty"`
	Description  *string                `json:"description,omitempty"`
	Endpoint     *string                `json:"endpoint,omitempty" validate:"omitempty,url"`
	Capabilities []string               `json:"capabilities,omitempty"`
	Tags         []string               `json:"tags,omitempty"`
	ArtifactKey  *string                `json:"artifact_key,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func NewAgentService(db *gorm.DB) *AgentService {
	return &AgentService{db: db}
}

func (s *AgentService) Create(ownerID uuid.UUID, req *CreateAgentRequest) (*models.Agent, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	agent := &models.Agent{
		OwnerID:      ownerID,
		Name:         req.Name,
		Description:  req.Description,
		Endpoint:     req.Endpoint,
		Capabilities: pq.StringArray(req.Capabilities),
		Tags:         pq.StringArray(req.Tags),
		ArtifactKey:  req.ArtifactKey,
		Metadata:     models.JSONB(req.Metadata),
	}

	if err := s.db.Create(agent).Error; err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	return agent, nil
}

func (s *AgentService) Update(agentID, ownerID uuid.UUID, req *UpdateAgentRequest) (*models.Agent, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var agent models.Agent
	if err := s.db.First(&agent, agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("agent not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if agent.OwnerID != ownerID {
		return nil, errors.New("unauthorized to update agent")
	}

	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.Description != nil {
		agent.Description = *req.Description
	}
	if req.Endpoint != nil {
		agent.Endpoint = *req.Endpoint
	}
	if req.Capabilities != nil {
		agent.Capabilities = pq.StringArray(req.Capabilities)
	}
	if req.Tags != nil {
		agent.Tags = pq.StringArray(req.Tags)
	}
	if req.ArtifactKey != nil {
		agent.ArtifactKey = *req.ArtifactKey
	}
	if req.Metadata != nil {
		agent.Metadata = models.JSONB(req.Metadata)
	}

	if err := s.db.Save(&agent).Error; err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}

	return &agent, nil
}

func (s *AgentService) Get(agentID uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	if err := s.db.First(&agent, agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("agent not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &agent, nil
}

func (s *AgentService) ListForOwner(ownerID uuid.UUID, params utils.PaginationParams) ([]models.Agent, int64, error) {
	query := s.db.Model(&models.Agent{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count agents: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "name"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var agents []models.Agent
	if err := query.Find(&agents).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch agents: %w", err)
	}

	return agents, total, nil
}
