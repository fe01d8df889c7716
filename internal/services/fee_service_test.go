// internal/services/fee_service_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/neuralnex/legionx-backend/internal/config"
	"github.com/neuralnex/legionx-backend/internal/models"
)

type FeeServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *FeeService
}

func (s *FeeServiceTestSuite) SetupTest() {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	s.Require().NoError(db.AutoMigrate(
		&models.FeeLedgerEntry{},
		&models.FeeSnapshot{},
		&models.OperationalAlert{},
	))

	s.db = db
	cfg := &config.Config{
		Reconciliation: config.ReconciliationConfig{
			ListingFeeBps:     100,
			MarketplaceCutBps: 250,
			DriftCheckSeconds: 3600,
		},
	}
	s.service = NewFeeService(db, cfg, NewAlertService(db))
}

func (s *FeeServiceTestSuite) record(amount int64) {
	intent := &models.PurchaseIntent{
		BaseModel:           models.BaseModel{ID: uuid.New()},
		DeclaredAmountMinor: amount,
	}
	s.Require().NoError(s.service.RecordTx(s.db, intent))
}

func (s *FeeServiceTestSuite) TestSplitUsesIntegerBasisPoints() {
	listingFee, marketplaceCut := s.service.Split(10000)
	s.Equal(int64(100), listingFee)
	s.Equal(int64(250), marketplaceCut)

	// Remainders truncate toward the seller.
	listingFee, marketplaceCut = s.service.Split(99)
	s.Equal(int64(0), listingFee)
	s.Equal(int64(2), marketplaceCut)
}

func (s *FeeServiceTestSuite) TestPlatformTotalsDeriveFromEntries() {
	s.record(10000)
	s.record(20000)
	s.record(5000)

	totals, err := s.service.PlatformTotals()
	s.Require().NoError(err)
	s.Equal(int64(3), totals.EntryCount)
	s.Equal(int64(350), totals.ListingFeeTotalMinor)     // 100+200+50
	s.Equal(int64(875), totals.MarketplaceCutTotalMinor) // 250+500+125
}

func (s *FeeServiceTestSuite) TestFeeConservation() {
	amounts := []int64{10000, 333, 99, 1000000}
	var wantListing, wantCut int64
	for _, a := range amounts {
		s.record(a)
		lf, mc := s.service.Split(a)
		wantListing += lf
		wantCut += mc
	}

	totals, err := s.service.PlatformTotals()
	s.Require().NoError(err)
	s.Equal(wantListing, totals.ListingFeeTotalMinor)
	s.Equal(wantCut, totals.MarketplaceCutTotalMinor)
}

func (s *FeeServiceTestSuite) TestRecomputeStoresSnapshot() {
	s.record(10000)

	snapshot, err := s.service.RecomputeAndCheck()
	s.Require().NoError(err)
	s.Equal(int64(1), snapshot.EntryCount)
	s.Equal(int64(100), snapshot.ListingFeeTotalMinor)

	var count int64
	s.db.Model(&models.FeeSnapshot{}).Count(&count)
	s.Equal(int64(1), count)
}

func (s *FeeServiceTestSuite) TestRecomputeAlertsOnRegression() {
	// A snapshot claiming totals the entries cannot reproduce means rows
	// were tampered with or lost.
	s.Require().NoError(s.db.Create(&models.FeeSnapshot{
		ListingFeeTotalMinor:     9999,
		MarketplaceCutTotalMinor: 9999,
		EntryCount:               10,
		ComputedAt:               time.Now().Add(-time.Hour),
	}).Error)
	s.record(10000)

	_, err := s.service.RecomputeAndCheck()
	s.Require().NoError(err)

	var alerts []models.OperationalAlert
	s.Require().NoError(s.db.Where("source = ?", "fee_drift_check").Find(&alerts).Error)
	s.Len(alerts, 1)
	s.Equal(models.AlertSeverityCritical, alerts[0].Severity)
}

func TestFeeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FeeServiceTestSuite))
}
