// internal/services/fee_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/neuralnex/legionx-backend/internal/config"
	"github.com/neuralnex/legionx-backend/internal/models"
)

// FeeService accounts for platform revenue. Every verified settlement writes
// exactly one FeeLedgerEntry inside the settlement transaction; this service
// reads those entries back and periodically cross-checks the running totals
// against a fresh recomputation.
type FeeService struct {
	db     *gorm.DB
	config *config.Config
	alerts *AlertService

	driftStop chan struct{}
}

type FeeTotals struct {
	ListingFeeTotalMinor     int64 `json:"listing_fee_total_minor"`
	MarketplaceCutTotalMinor int64 `json:"marketplace_cut_total_minor"`
	EntryCount               int64 `json:"entry_count"`
}

func NewFeeService(db *gorm.DB, cfg *config.Config, alerts *AlertService) *FeeService {
	return &FeeService{
		db:        db,
		config:    cfg,
		alerts:    alerts,
		driftStop: make(chan struct{}),
	}
}

// Split computes the fee breakdown for a settled amount. Integer basis
// point arithmetic; remainders stay with the seller.
func (s *FeeService) Split(amountMinor int64) (listingFee, marketplaceCut int64) {
	listingFee = amountMinor * int64(s.config.Reconciliation.ListingFeeBps) / 10000
	marketplaceCut = amountMinor * int64(s.config.Reconciliation.MarketplaceCutBps) / 10000
	return listingFee, marketplaceCut
}

// RecordTx writes the fee ledger entry for a settlement inside the caller's
// transaction. The unique index on purchase_intent_id keeps the ledger
// append-once per settlement.
func (s *FeeService) RecordTx(tx *gorm.DB, intent *models.PurchaseIntent) error {
	listingFee, marketplaceCut := s.Split(intent.DeclaredAmountMinor)

	entry := &models.FeeLedgerEntry{
		PurchaseIntentID:    intent.ID,
		ListingFeeMinor:     listingFee,
		MarketplaceCutMinor: marketplaceCut,
		SettledAt:           time.Now(),
	}

	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record fee entry: %w", err)
	}

	return nil
}

func (s *FeeService) PlatformTotals() (*FeeTotals, error) {
	var totals FeeTotals
	err := s.db.Model(&models.FeeLedgerEntry{}).
		Select("COALESCE(SUM(listing_fee_minor), 0) AS listing_fee_total_minor, COALESCE(SUM(marketplace_cut_minor), 0) AS marketplace_cut_total_minor, COUNT(*) AS entry_count").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute fee totals: %w", err)
	}

	return &totals, nil
}

// RecomputeAndCheck recomputes totals from the raw entries, stores a
// snapshot, and raises a critical alert if consecutive snapshots disagree
// with the entry count arithmetic.
func (s *FeeService) RecomputeAndCheck() (*models.FeeSnapshot, error) {
	totals, err := s.PlatformTotals()
	if err != nil {
		return nil, err
	}

	var last models.FeeSnapshot
	err = s.db.Order("computed_at DESC").First(&last).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to load last snapshot: %w", err)
	}

	// Entries are append-only, so totals may only grow.
	if err == nil {
		if totals.ListingFeeTotalMinor < last.ListingFeeTotalMinor ||
			totals.MarketplaceCutTotalMinor < last.MarketplaceCutTotalMinor ||
			totals.EntryCount < last.EntryCount {
			_ = s.alerts.Raise(models.AlertSeverityCritical, "fee_drift_check",
				"fee ledger totals regressed since last snapshot",
				map[string]interface{}{
					"previous_listing_fee":    last.ListingFeeTotalMinor,
					"current_listing_fee":     totals.ListingFeeTotalMinor,
					"previous_marketplace":    last.MarketplaceCutTotalMinor,
					"current_marketplace":     totals.MarketplaceCutTotalMinor,
					"previous_entry_count":    last.EntryCount,
					"current_entry_count":     totals.EntryCount,
				})
		}
	}

	snapshot := &models.FeeSnapshot{
		ListingFeeTotalMinor:     totals.ListingFeeTotalMinor,
		MarketplaceCutTotalMinor: totals.MarketplaceCutTotalMinor,
		EntryCount:               totals.EntryCount,
		ComputedAt:               time.Now(),
	}
	if err := s.db.Create(snapshot).Error; err != nil {
		return nil, fmt.Errorf("failed to store fee snapshot: %w", err)
	}

	return snapshot, nil
}

// StartDriftChecker runs RecomputeAndCheck on a fixed interval until the
// context is cancelled or Stop is called.
func (s *FeeService) StartDriftChecker(ctx context.Context) {
	interval := time.Duration(s.config.Reconciliation.DriftCheckSeconds) * time.Second
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.driftStop:
				return
			case <-ticker.C:
				if _, err := s.RecomputeAndCheck(); err != nil {
					logrus.WithError(err).Error("Fee drift check failed")
				}
			}
		}
	}()

	logrus.WithField("interval", interval.String()).Info("Fee drift checker started")
}

func (s *FeeService) Stop() {
	close(s.driftStop)
}
