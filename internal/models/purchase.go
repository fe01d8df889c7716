// internal/models/purchase.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseIntent tracks a buyer's payment from initiation to its terminal
// verdict. The unique index on PaymentReference is the core idempotency
// guard: at most one intent can ever be verified per distinct reference.
type PurchaseIntent struct {
	BaseModel
	ListingID           uuid.UUID        `json:"listing_id" gorm:"type:uuid;not null;index"`
	BuyerID             uuid.UUID        `json:"buyer_id" gorm:"type:uuid;not null;index"`
	Kind                IntentKind       `json:"kind" gorm:"type:varchar(20);not null"`
	Method              SettlementMethod `json:"method" gorm:"type:varchar(20);not null"`
	DeclaredAmountMinor int64            `json:"declared_amount_minor" gorm:"not null"`
	PaymentReference    string           `json:"payment_reference" gorm:"size:255;not null;uniqueIndex"`
	TermsHash           string           `json:"terms_hash" gorm:"size:64;not null"` // listing terms at intent creation
	Status              IntentStatus     `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	RejectReason        string           `json:"reject_reason,omitempty" gorm:"type:text"`
	Attempts            int              `json:"attempts" gorm:"default:0"`
	NextRetryAt         *time.Time       `json:"next_retry_at" gorm:"index"`
	ProcessedAt         *time.Time       `json:"processed_at"`

	// Relationships
	Listing Listing `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
	Buyer   User    `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
}

// Terminal reports whether the intent has reached a final verdict.
func (p *PurchaseIntent) Terminal() bool {
	return p.Status == IntentStatusVerified || p.Status == IntentStatusRejected
}

// Entitlement is the durable grant produced by exactly one verified
// purchase intent. The unique index on GrantedFrom makes a second grant for
// the same intent a constraint violation rather than a silent duplicate.
type Entitlement struct {
	BaseModel
	UserID       uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index:idx_entitlements_user_subject"`
	SubjectID    uuid.UUID       `json:"subject_id" gorm:"type:uuid;index:idx_entitlements_user_subject"`
	Kind         EntitlementKind `json:"kind" gorm:"type:varchar(20);not null"`
	ExpiresAt    *time.Time      `json:"expires_at"` // subscription grants only
	CreditPoints int64           `json:"credit_points" gorm:"default:0"`
	GrantedFrom  uuid.UUID       `json:"granted_from" gorm:"type:uuid;not null;uniqueIndex"`

	// Relationships
	PurchaseIntent PurchaseIntent `json:"purchase_intent,omitempty" gorm:"foreignKey:GrantedFrom"`
}

// FeeLedgerEntry is the append-only fee record, one per verified intent.
// Marketplace balances are always recomputed from these rows.
type FeeLedgerEntry struct {
	BaseModel
	PurchaseIntentID    uuid.UUID `json:"purchase_intent_id" gorm:"type:uuid;not null;uniqueIndex"`
	ListingFeeMinor     int64     `json:"listing_fee_minor" gorm:"not null"`
	MarketplaceCutMinor int64     `json:"marketplace_cut_minor" gorm:"not null"`
	SettledAt           time.Time `json:"settled_at" gorm:"not null;index"`
}
