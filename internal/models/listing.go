// internal/models/listing.go
package models

import (
	"github.com/google/uuid"
)

// Listing carries the seller's on-chain mirrored terms. PaymentAddress is
// denormalized from the seller at creation time so chain settlement
// validation does not depend on later profile edits. A full-transfer listing
// is immutable once sold.
type Listing struct {
	BaseModel
	SellerID             uuid.UUID    `json:"seller_id" gorm:"type:uuid;not null;index"`
	AgentID              *uuid.UUID   `json:"agent_id" gorm:"type:uuid;index"`
	Title                string       `json:"title" gorm:"size:200;not null"`
	Description          string       `json:"description" gorm:"type:text"`
	PriceMinor           int64        `json:"price_minor" gorm:"not null"`
	FullPriceMinor       *int64       `json:"full_price_minor"`
	SubscriptionDuration *int64       `json:"subscription_duration"` // seconds; present iff subscription access is offered
	PaymentAddress       string       `json:"payment_address" gorm:"size:128;not null"`
	TermsHash            string       `json:"terms_hash" gorm:"size:64;not null;index"`
	State                ListingState `json:"state" gorm:"type:varchar(20);default:'active';index"`

	// Relationships
	Seller  User             `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	Intents []PurchaseIntent `json:"intents,omitempty" gorm:"foreignKey:ListingID"`
}

// SupportsSubscription reports whether the listing offers time-bounded access.
func (l *Listing) SupportsSubscription() bool {
	return l.SubscriptionDuration != nil && *l.SubscriptionDuration > 0
}

// FullTransferPrice is the amount a buy-full settlement must pay.
func (l *Listing) FullTransferPrice() int64 {
	if l.FullPriceMinor != nil {
		return *l.FullPriceMinor
	}
	return l.PriceMinor
}
