// internal/models/agent.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Agent is the AI agent whose access rights are listed for sale. The agent
// artifact itself lives in external storage; ArtifactKey points at it.
type Agent struct {
	BaseModel
	OwnerID      uuid.UUID      `json:"owner_id" gorm:"type:uuid;not null;index"`
	Name         string         `json:"name" gorm:"size:200;not null"`
	Description  string         `json:"description" gorm:"type:text"`
	Endpoint     string         `json:"endpoint" gorm:"size:500"`
	Capabilities pq.StringArray `json:"capabilities" gorm:"type:text[]"`
	Tags         pq.StringArray `json:"tags" gorm:"type:text[]"`
	ArtifactKey  string         `json:"artifact_key" gorm:"size:500"`
	Metadata     JSONB          `json:"metadata" gorm:"type:jsonb"`

	// Relationships
	Owner    User      `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Listings []Listing `json:"listings,omitempty" gorm:"foreignKey:AgentID"`
}
