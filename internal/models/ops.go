// internal/models/ops.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// OperationalAlert surfaces conditions that must never be silently dropped:
// exhausted settlement retries, commit failures, fee-ledger drift.
type OperationalAlert struct {
	BaseModel
	Severity   AlertSeverity `json:"severity" gorm:"type:varchar(20);not null;index"`
	Source     string        `json:"source" gorm:"size:100;not null;index"`
	Message    string        `json:"message" gorm:"type:text;not null"`
	Details    JSONB         `json:"details" gorm:"type:jsonb"`
	ResolvedAt *time.Time    `json:"resolved_at"`
}

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:255;not null"`
	ResourceType string     `json:"resource_type" gorm:"size:50;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"size:500"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
}

// FeeSnapshot caches derived fee totals so the drift check job has a prior
// value to compare freshly recomputed totals against.
type FeeSnapshot struct {
	BaseModel
	ListingFeeTotalMinor     int64     `json:"listing_fee_total_minor" gorm:"not null"`
	MarketplaceCutTotalMinor int64     `json:"marketplace_cut_total_minor" gorm:"not null"`
	EntryCount               int64     `json:"entry_count" gorm:"not null"`
	ComputedAt               time.Time `json:"computed_at" gorm:"not null;index"`
}
