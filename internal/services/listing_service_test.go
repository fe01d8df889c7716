// internal/services/listing_service_test.go
package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/neuralnex/legionx-backend/internal/apperrors"
	"github.com/neuralnex/legionx-backend/internal/ledger"
	"github.com/neuralnex/legionx-backend/internal/models"
)

type ListingServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *ListingService
	seller  *models.User
	buyer   *models.User
}

func (s *ListingServiceTestSuite) SetupTest() {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	s.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.PurchaseIntent{},
	))
	s.db = db
	s.service = NewListingService(db)

	s.seller = &models.User{
		Username:      "seller1",
		Email:         "seller1@example.com",
		UserType:      models.UserTypeSeller,
		Status:        models.UserStatusActive,
		WalletAddress: "addr_seller",
	}
	s.Require().NoError(s.seller.SetPassword("Str0ng!Pass"))
	s.Require().NoError(db.Create(s.seller).Error)

	s.buyer = &models.User{
		Username: "buyer1",
		Email:    "buyer1@example.com",
		UserType: models.UserTypeBuyer,
		Status:   models.UserStatusActive,
	}
	s.Require().NoError(s.buyer.SetPassword("Str0ng!Pass"))
	s.Require().NoError(db.Create(s.buyer).Error)
}

func (s *ListingServiceTestSuite) TestCreateComputesTermsHash() {
	fullPrice := int64(500)
	duration := int64(2592000)

	listing, err := s.service.Create(s.seller.ID, &CreateListingRequest{
		Title:                "Research agent",
		PriceMinor:           100,
		FullPriceMinor:       &fullPrice,
		SubscriptionDuration: &duration,
	})
	s.Require().NoError(err)

	s.Equal(models.ListingStateActive, listing.State)
	s.Equal("addr_seller", listing.PaymentAddress)
	s.Equal(ledger.TermsHash("addr_seller", 100, &fullPrice, &duration), listing.TermsHash)
	s.True(listing.SupportsSubscription())
	s.Equal(int64(500), listing.FullTransferPrice())
}

func (s *ListingServiceTestSuite) TestCreateRejectsInvalidTerms() {
	_, err := s.service.Create(s.seller.ID, &CreateListingRequest{
		Title:      "Bad price",
		PriceMinor: -5,
	})
	s.Error(err)
	s.Equal(apperrors.ErrInvalidTerms.Code, apperrors.CodeOf(err))

	low := int64(50)
	_, err = s.service.Create(s.seller.ID, &CreateListingRequest{
		Title:          "Full below price",
		PriceMinor:     100,
		FullPriceMinor: &low,
	})
	s.Error(err)
	s.Equal(apperrors.ErrInvalidTerms.Code, apperrors.CodeOf(err))
}

func (s *ListingServiceTestSuite) TestEditRecomputesTermsHash() {
	listing, err := s.service.Create(s.seller.ID, &CreateListingRequest{
		Title:      "Agent access",
		PriceMinor: 100,
	})
	s.Require().NoError(err)
	originalHash := listing.TermsHash

	newPrice := int64(200)
	updated, err := s.service.Edit(listing.ID, s.seller.ID, &EditListingRequest{
		PriceMinor: &newPrice,
	})
	s.Require().NoError(err)
	s.Equal(int64(200), updated.PriceMinor)
	s.NotEqual(originalHash, updated.TermsHash)
}

func (s *ListingServiceTestSuite) TestEditRefusedWhenNotActive() {
	listing, err := s.service.Create(s.seller.ID, &CreateListingRequest{
		Title:      "Agent access",
		PriceMinor: 100,
	})
	s.Require().NoError(err)

	_, err = s.service.Delist(listing.ID, s.seller.ID)
	s.Require().NoError(err)

	newPrice := int64(200)
	_, err = s.service.Edit(listing.ID, s.seller.ID, &EditListingRequest{PriceMinor: &newPrice})
	s.Error(err)
	s.Equal(apperrors.ErrNotEditable.Code, apperrors.CodeOf(err))
}

func (s *ListingServiceTestSuite) TestDelistRefusedAfterSettledFullTransfer() {
	listing, err := s.service.Create(s.seller.ID, &CreateListingRequest{
		Title:      "Agent access",
		PriceMinor: 100,
	})
	s.Require().NoError(err)

	intent := &models.PurchaseIntent{
		ListingID:           listing.ID,
		BuyerID:             s.buyer.ID,
		Kind:                models.IntentKindFullTransfer,
		Method:              models.SettlementMethodChain,
		DeclaredAmountMinor: 100,
		PaymentReference:    "txref1",
		TermsHash:           listing.TermsHash,
		Status:              models.IntentStatusVerified,
	}
	s.Require().NoError(s.db.Create(intent).Error)

	_, err = s.service.Delist(listing.ID, s.seller.ID)
	s.Error(err)
	s.Equal(apperrors.ErrAlreadySettled.Code, apperrors.CodeOf(err))
}

func (s *ListingServiceTestSuite) TestMarkSoldIsIdempotent() {
	listing, err := s.service.Create(s.seller.ID, &CreateListingRequest{
		Title:      "Agent access",
		PriceMinor: 100,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.service.MarkSold(s.db, listing.ID))
	s.Require().NoError(s.service.MarkSold(s.db, listing.ID))

	var got models.Listing
	s.Require().NoError(s.db.First(&got, listing.ID).Error)
	s.Equal(models.ListingStateSold, got.State)
}

func (s *ListingServiceTestSuite) TestEditByNonOwnerRefused() {
	listing, err := s.service.Create(s.seller.ID, &CreateListingRequest{
		Title:      "Agent access",
		PriceMinor: 100,
	})
	s.Require().NoError(err)

	newPrice := int64(1)
	_, err = s.service.Edit(listing.ID, s.buyer.ID, &EditListingRequest{PriceMinor: &newPrice})
	s.Error(err)
	s.Contains(err.Error(), "unauthorized")
}

func TestListingServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ListingServiceTestSuite))
}
