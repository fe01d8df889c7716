// internal/services/listing_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/neuralnex/legionx-backend/internal/apperrors"
	"github.com/neuralnex/legionx-backend/internal/ledger"
	"github.com/neuralnex/legionx-backend/internal/models"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

// ListingService is the registry of sale terms and listing lifecycle state.
type ListingService struct {
	db *gorm.DB
}

type CreateListingRequest struct {
	AgentID              *uuid.UUID `json:"agent_id,omitempty"`
	Title                string     `json:"title" validate:"required,max=200"`
	Description          string     `json:"description,omitempty"`
	PriceMinor           int64      `json:"price_minor" validate:"required"`
	FullPriceMinor       *int64     `json:"full_price_minor,omitempty"`
	SubscriptionDuration *int64     `json:"subscription_duration,omitempty"`
}

type EditListingRequest struct {
	Title                *string `json:"title,omitempty"`
	Description          *string `json:"description,omitempty"`
	PriceMinor           *int64  `json:"price_minor,omitempty"`
	FullPriceMinor       *int64  `json:"full_price_minor,omitempty"`
	SubscriptionDuration *int64  `json:"subscription_duration,omitempty"`
}

func NewListingService(db *gorm.DB) *ListingService {
	return &ListingService{db: db}
}

func (s *ListingService) Create(sellerID uuid.UUID, req *CreateListingRequest) (*models.Listing, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := validateTerms(req.PriceMinor, req.FullPriceMinor, req.SubscriptionDuration); err != nil {
		return nil, err
	}

	var seller models.User
	if err := s.db.First(&seller, sellerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("seller not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if seller.WalletAddress == "" {
		return nil, fmt.Errorf("seller has no payment address: %w", apperrors.ErrInvalidTerms)
	}

	if req.AgentID != nil {
		var agent models.Agent
		if err := s.db.First(&agent, *req.AgentID).Error; err != nil {
			return nil, errors.New("agent not found")
		}
		if agent.OwnerID != sellerID {
			return nil, errors.New("agent does not belong to seller")
		}
	}

	listing := &models.Listing{
		SellerID:             sellerID,
		AgentID:              req.AgentID,
		Title:                req.Title,
		Description:          req.Description,
		PriceMinor:           req.PriceMinor,
		FullPriceMinor:       req.FullPriceMinor,
		SubscriptionDuration: req.SubscriptionDuration,
		PaymentAddress:       seller.WalletAddress,
		State:                models.ListingStateActive,
	}
	listing.TermsHash = ledger.TermsHash(listing.PaymentAddress, listing.PriceMinor, listing.FullPriceMinor, listing.SubscriptionDuration)

	if err := s.db.Create(listing).Error; err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	return listing, nil
}

// Edit is only permitted while the listing is active; the terms hash is
// recomputed so in-flight intents keep the hash they were created under.
func (s *ListingService) Edit(listingID, sellerID uuid.UUID, req *EditListingRequest) (*models.Listing, error) {
	var listing models.Listing
	if err := s.db.First(&listing, listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("listing not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if listing.SellerID != sellerID {
		return nil, errors.New("unauthorized to edit listing")
	}

	if listing.State != models.ListingStateActive {
		return nil, fmt.Errorf("listing is %s: %w", listing.State, apperrors.ErrNotEditable)
	}

	if req.Title != nil {
		listing.Title = *req.Title
	}
	if req.Description != nil {
		listing.Description = *req.Description
	}
	if req.PriceMinor != nil {
		listing.PriceMinor = *req.PriceMinor
	}
	if req.FullPriceMinor != nil {
		listing.FullPriceMinor = req.FullPriceMinor
	}
	if req.SubscriptionDuration != nil {
		listing.SubscriptionDuration = req.SubscriptionDuration
	}

	if err := validateTerms(listing.PriceMinor, listing.FullPriceMinor, listing.SubscriptionDuration); err != nil {
		return nil, err
	}

	listing.TermsHash = ledger.TermsHash(listing.PaymentAddress, listing.PriceMinor, listing.FullPriceMinor, listing.SubscriptionDuration)

	if err := s.db.Save(&listing).Error; err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}

	return &listing, nil
}

func (s *ListingService) Delist(listingID, sellerID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := s.db.First(&listing, listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("listing not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if listing.SellerID != sellerID {
		return nil, errors.New("unauthorized to delist listing")
	}

	// A settled full transfer owns the listing outcome; delisting after the
	// fact would orphan the buyer's entitlement.
	var settled int64
	if err := s.db.Model(&models.PurchaseIntent{}).
		Where("listing_id = ? AND kind = ? AND status = ?",
			listingID, models.IntentKindFullTransfer, models.IntentStatusVerified).
		Count(&settled).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if settled > 0 {
		return nil, fmt.Errorf("listing has a settled full transfer: %w", apperrors.ErrAlreadySettled)
	}

	listing.State = models.ListingStateDelisted
	if err := s.db.Save(&listing).Error; err != nil {
		return nil, fmt.Errorf("failed to delist listing: %w", err)
	}

	return &listing, nil
}

// MarkSold is invoked only by the reconciliation engine inside its commit
// transaction. Repeated calls on an already-sold listing are a no-op.
func (s *ListingService) MarkSold(tx *gorm.DB, listingID uuid.UUID) error {
	query := tx
	// SQLite has no row locks; its writes are serialized anyway.
	if tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var listing models.Listing
	if err := query.First(&listing, listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("listing not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if listing.State == models.ListingStateSold {
		return nil
	}

	listing.State = models.ListingStateSold
	if err := tx.Save(&listing).Error; err != nil {
		return fmt.Errorf("failed to mark listing sold: %w", err)
	}

	return nil
}

func (s *ListingService) Get(listingID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := s.db.Preload("Seller").First(&listing, listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("listing not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &listing, nil
}

func (s *ListingService) List(params utils.PaginationParams) ([]models.Listing, int64, error) {
	query := s.db.Model(&models.Listing{}).Preload("Seller")

	if params.State != "" {
		query = query.Where("state = ?", params.State)
	} else {
		query = query.Where("state = ?", models.ListingStateActive)
	}

	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "price_minor", "title"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var listings []models.Listing
	if err := query.Find(&listings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch listings: %w", err)
	}

	return listings, total, nil
}

func validateTerms(priceMinor int64, fullPriceMinor, subscriptionDuration *int64) error {
	if priceMinor <= 0 {
		return fmt.Errorf("price must be positive: %w", apperrors.ErrInvalidTerms)
	}
	if fullPriceMinor != nil && *fullPriceMinor < priceMinor {
		return fmt.Errorf("full price below price: %w", apperrors.ErrInvalidTerms)
	}
	if subscriptionDuration != nil && *subscriptionDuration <= 0 {
		return fmt.Errorf("subscription duration must be positive: %w", apperrors.ErrInvalidTerms)
	}
	return nil
}
