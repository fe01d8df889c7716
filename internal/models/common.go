// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeSeller UserType = "seller"
	UserTypeBuyer  UserType = "buyer"
	UserTypeAdmin  UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type ListingState string

const (
	ListingStateActive   ListingState = "active"
	ListingStateDelisted ListingState = "delisted"
	ListingStateSold     ListingState = "sold"
)

type IntentKind string

const (
	IntentKindFullTransfer  IntentKind = "full_transfer"
	IntentKindSubscription  IntentKind = "subscription"
	IntentKindListingCredit IntentKind = "listing_credit"
)

type IntentStatus string

const (
	IntentStatusPending  IntentStatus = "pending"
	IntentStatusVerified IntentStatus = "verified"
	IntentStatusRejected IntentStatus = "rejected"
)

type SettlementMethod string

const (
	SettlementMethodChain   SettlementMethod = "chain"
	SettlementMethodGateway SettlementMethod = "gateway"
)

type EntitlementKind string

const (
	EntitlementKindOwned        EntitlementKind = "owned"
	EntitlementKindSubscription EntitlementKind = "subscription"
	EntitlementKindCredit       EntitlementKind = "credit"
)

type AlertSeverity string

const (
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)
