// internal/services/reconciliation_service.go
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/neuralnex/legionx-backend/internal/apperrors"
	"github.com/neuralnex/legionx-backend/internal/config"
	"github.com/neuralnex/legionx-backend/internal/database"
	"github.com/neuralnex/legionx-backend/internal/gateway"
	"github.com/neuralnex/legionx-backend/internal/ledger"
	"github.com/neuralnex/legionx-backend/internal/models"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

// ReconciliationService consumes settlement signals from the chain indexer
// and the payment gateway, validates them against listing terms, and commits
// the resulting entitlement and fee mutations exactly once per payment
// reference.
//
// Processing is serialized per payment reference through an in-process
// keyed lease; the unique indexes on purchase_intents.payment_reference and
// entitlements.granted_from back the same guarantee at the storage layer.
type ReconciliationService struct {
	db           *gorm.DB
	config       *config.Config
	ledger       ledger.Client
	gateway      gateway.Gateway
	listings     *ListingService
	entitlements *EntitlementService
	fees         *FeeService
	alerts       *AlertService

	leases   keyedMutex
	pollStop chan struct{}
	stopOnce sync.Once
}

type CreateIntentRequest struct {
	ListingID    uuid.UUID               `json:"listing_id" validate:"required"`
	Kind         models.IntentKind       `json:"kind" validate:"required,oneof=full_transfer subscription listing_credit"`
	Method       models.SettlementMethod `json:"method" validate:"required,oneof=chain gateway"`
	TxHash       string                  `json:"tx_hash,omitempty" validate:"omitempty,tx_hash"`
	SignedTx     string                  `json:"signed_tx,omitempty"` // base64, submitted on the buyer's behalf
	CreditPoints int64                   `json:"credit_points,omitempty"`
}

// CreateIntentResult carries the recorded intent plus, for gateway
// settlements, the checkout session the buyer completes payment through.
type CreateIntentResult struct {
	Intent   *models.PurchaseIntent   `json:"intent"`
	Checkout *gateway.CheckoutSession `json:"checkout,omitempty"`
}

func NewReconciliationService(
	db *gorm.DB,
	cfg *config.Config,
	ledgerClient ledger.Client,
	gw gateway.Gateway,
	listings *ListingService,
	entitlements *EntitlementService,
	fees *FeeService,
	alerts *AlertService,
) *ReconciliationService {
	return &ReconciliationService{
		db:           db,
		config:       cfg,
		ledger:       ledgerClient,
		gateway:      gw,
		listings:     listings,
		entitlements: entitlements,
		fees:         fees,
		alerts:       alerts,
		leases:       newKeyedMutex(),
		pollStop:     make(chan struct{}),
	}
}

// CreateIntent records the buyer's declared payment before any settlement
// signal can be honored. Unsolicited signals with no matching intent are
// always refused, so the intent row is the anchor of the whole flow.
func (s *ReconciliationService) CreateIntent(ctx context.Context, buyerID uuid.UUID, req *CreateIntentRequest) (*CreateIntentResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	listing, err := s.listings.Get(req.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.State != models.ListingStateActive {
		return nil, fmt.Errorf("listing is %s: %w", listing.State, apperrors.ErrNotEditable)
	}
	if listing.SellerID == buyerID {
		return nil, errors.New("sellers cannot purchase their own listing")
	}

	var declared int64
	switch req.Kind {
	case models.IntentKindFullTransfer:
		declared = listing.FullTransferPrice()
	case models.IntentKindSubscription:
		if !listing.SupportsSubscription() {
			return nil, fmt.Errorf("listing does not offer subscription access: %w", apperrors.ErrInvalidTerms)
		}
		declared = listing.PriceMinor
	case models.IntentKindListingCredit:
		if req.Method != models.SettlementMethodGateway {
			return nil, fmt.Errorf("listing credits settle through the payment gateway: %w", apperrors.ErrInvalidTerms)
		}
		if req.CreditPoints <= 0 {
			return nil, fmt.Errorf("credit points must be positive: %w", apperrors.ErrInvalidTerms)
		}
		declared = req.CreditPoints * s.config.Reconciliation.CreditUnitMinor
	}

	intent := &models.PurchaseIntent{
		ListingID:           listing.ID,
		BuyerID:             buyerID,
		Kind:                req.Kind,
		Method:              req.Method,
		DeclaredAmountMinor: declared,
		TermsHash:           listing.TermsHash,
		Status:              models.IntentStatusPending,
	}

	result := &CreateIntentResult{Intent: intent}

	switch req.Method {
	case models.SettlementMethodChain:
		reference := req.TxHash
		if reference == "" {
			if req.SignedTx == "" {
				return nil, errors.New("chain settlement requires tx_hash or signed_tx")
			}
			raw, err := base64.StdEncoding.DecodeString(req.SignedTx)
			if err != nil {
				return nil, fmt.Errorf("invalid signed transaction encoding: %w", err)
			}
			reference, err = s.ledger.Submit(ctx, raw)
			if err != nil {
				return nil, fmt.Errorf("failed to submit transaction: %w", err)
			}
		}
		intent.PaymentReference = reference
		// Picked up by the poller.
		now := time.Now()
		intent.NextRetryAt = &now

	case models.SettlementMethodGateway:
		reference, err := utils.GeneratePaymentReference()
		if err != nil {
			return nil, fmt.Errorf("failed to generate payment reference: %w", err)
		}
		checkout, err := s.gateway.CreateCheckoutSession(declared, s.config.Payment.Currency, reference, listing.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to create checkout session: %w", err)
		}
		intent.PaymentReference = reference
		result.Checkout = checkout
	}

	if err := s.db.Create(intent).Error; err != nil {
		return nil, fmt.Errorf("failed to create purchase intent: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"intent_id": intent.ID,
		"listing":   listing.ID,
		"kind":      intent.Kind,
		"method":    intent.Method,
		"reference": intent.PaymentReference,
	}).Info("Purchase intent created")

	return result, nil
}

// ProcessChainSettlement handles a chain settlement signal for the given
// transaction hash. Duplicate deliveries of an already-settled reference
// return the intent unchanged.
func (s *ReconciliationService) ProcessChainSettlement(ctx context.Context, txHash string) (*models.PurchaseIntent, error) {
	unlock := s.leases.Lock(txHash)
	defer unlock()

	intent, err := s.intentByReference(txHash)
	if err != nil {
		return nil, err
	}
	if intent.Terminal() {
		return intent, nil
	}
	if intent.Method != models.SettlementMethodChain {
		return nil, fmt.Errorf("reference %s is not chain-settled: %w", txHash, apperrors.ErrUnknownReference)
	}

	return s.evaluateChainIntent(ctx, intent)
}

// ProcessGatewayWebhook verifies and applies a payment gateway webhook
// delivery. Signature failures are rejected before any state is touched.
func (s *ReconciliationService) ProcessGatewayWebhook(payload []byte, signatureHeader string) (*models.PurchaseIntent, error) {
	event, err := s.gateway.VerifyWebhook(payload, signatureHeader)
	if err != nil {
		return nil, err
	}
	if !event.Completed {
		logrus.WithField("event_type", event.Type).Debug("Ignoring non-settlement webhook event")
		return nil, nil
	}

	unlock := s.leases.Lock(event.Reference)
	defer unlock()

	intent, err := s.intentByReference(event.Reference)
	if err != nil {
		return nil, err
	}
	if intent.Terminal() {
		return intent, nil
	}
	if intent.Method != models.SettlementMethodGateway {
		return nil, fmt.Errorf("reference %s is not gateway-settled: %w", event.Reference, apperrors.ErrUnknownReference)
	}

	if event.AmountMinor != intent.DeclaredAmountMinor {
		return s.reject(intent, fmt.Sprintf("gateway amount %d does not match declared %d", event.AmountMinor, intent.DeclaredAmountMinor))
	}

	if err := s.commitAcceptance(intent); err != nil {
		return nil, err
	}

	return intent, nil
}

// Cancel marks a pending intent rejected at the buyer's request. The lease
// makes the race with an in-flight acceptance single-winner; once the
// engine has verified the payment, cancellation is refused.
func (s *ReconciliationService) Cancel(intentID, buyerID uuid.UUID) (*models.PurchaseIntent, error) {
	var lookup models.PurchaseIntent
	if err := s.db.First(&lookup, intentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("purchase intent not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if lookup.BuyerID != buyerID {
		return nil, errors.New("unauthorized to cancel intent")
	}

	unlock := s.leases.Lock(lookup.PaymentReference)
	defer unlock()

	intent, err := s.intentByReference(lookup.PaymentReference)
	if err != nil {
		return nil, err
	}
	if intent.Status == models.IntentStatusVerified {
		return nil, fmt.Errorf("payment already verified: %w", apperrors.ErrAlreadySettled)
	}
	if intent.Status == models.IntentStatusRejected {
		return intent, nil
	}

	return s.reject(intent, "cancelled by buyer")
}

// Start launches the chain poller, which re-evaluates pending chain intents
// whose retry time has arrived. Gateway intents are push-only and never
// polled.
func (s *ReconciliationService) Start(ctx context.Context) {
	interval := time.Duration(s.config.Reconciliation.PollIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.pollStop:
				return
			case <-ticker.C:
				s.pollPendingChainIntents(ctx)
			}
		}
	}()

	logrus.WithField("interval", interval.String()).Info("Reconciliation poller started")
}

func (s *ReconciliationService) Stop() {
	s.stopOnce.Do(func() { close(s.pollStop) })
}

func (s *ReconciliationService) pollPendingChainIntents(ctx context.Context) {
	var due []models.PurchaseIntent
	err := s.db.
		Where("status = ? AND method = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?",
			models.IntentStatusPending, models.SettlementMethodChain, time.Now()).
		Limit(100).
		Find(&due).Error
	if err != nil {
		logrus.WithError(err).Error("Failed to load pending chain intents")
		return
	}

	for i := range due {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.ProcessChainSettlement(ctx, due[i].PaymentReference); err != nil {
			if apperrors.IsTransient(err) {
				logrus.WithError(err).WithField("reference", due[i].PaymentReference).
					Debug("Chain intent still pending")
				continue
			}
			logrus.WithError(err).WithField("reference", due[i].PaymentReference).
				Warn("Chain intent evaluation failed")
		}
	}
}

func (s *ReconciliationService) Get(intentID, buyerID uuid.UUID) (*models.PurchaseIntent, error) {
	var intent models.PurchaseIntent
	if err := s.db.Preload("Listing").First(&intent, intentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("purchase intent not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if intent.BuyerID != buyerID {
		return nil, errors.New("unauthorized to view intent")
	}

	return &intent, nil
}

func (s *ReconciliationService) GetHistory(buyerID uuid.UUID, params utils.PaginationParams) ([]models.PurchaseIntent, int64, error) {
	query := s.db.Model(&models.PurchaseIntent{}).Preload("Listing").Where("buyer_id = ?", buyerID)

	if params.State != "" {
		query = query.Where("status = ?", params.State)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count intents: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var intents []models.PurchaseIntent
	if err := query.Find(&intents).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch intents: %w", err)
	}

	return intents, total, nil
}

// evaluateChainIntent applies the acceptance rules to a pending chain
// intent. Depth and indexer availability are the only conditions that can
// change on a later poll; everything else about a chain transaction is
// immutable, so any content mismatch is a definitive rejection.
func (s *ReconciliationService) evaluateChainIntent(ctx context.Context, intent *models.PurchaseIntent) (*models.PurchaseIntent, error) {
	tx, err := s.ledger.GetTransaction(ctx, intent.PaymentReference)
	if err != nil {
		// Every indexer failure, expected or not, consumes a retry attempt
		// so a misbehaving indexer cannot keep an intent cycling forever.
		s.scheduleRetry(intent, err.Error())
		return intent, err
	}

	listing, err := s.listings.Get(intent.ListingID)
	if err != nil {
		return nil, err
	}

	asset := s.config.Ledger.PaymentAsset
	paid := tx.PaidTo(listing.PaymentAddress, asset)
	if paid == 0 {
		return s.reject(intent, fmt.Sprintf("transaction pays no %s to seller address %s", asset, listing.PaymentAddress))
	}
	if paid != intent.DeclaredAmountMinor {
		return s.reject(intent, fmt.Sprintf("transaction pays %d, declared %d", paid, intent.DeclaredAmountMinor))
	}
	if tx.Metadata == nil {
		return s.reject(intent, "transaction carries no terms metadata")
	}
	if tx.Metadata.TermsHash != intent.TermsHash {
		return s.reject(intent, "transaction terms hash does not match listing terms at intent creation")
	}
	if err := s.matchAction(intent, tx.Metadata); err != nil {
		return s.reject(intent, err.Error())
	}

	if tx.Confirmations < s.config.Reconciliation.MinConfirmations {
		err := fmt.Errorf("transaction has %d of %d required confirmations: %w",
			tx.Confirmations, s.config.Reconciliation.MinConfirmations, apperrors.ErrInsufficientConfirmations)
		s.scheduleRetry(intent, err.Error())
		return intent, err
	}

	if err := s.commitAcceptance(intent); err != nil {
		return nil, err
	}

	return intent, nil
}

// matchAction checks that the action encoded on-chain agrees with the kind
// the buyer declared.
func (s *ReconciliationService) matchAction(intent *models.PurchaseIntent, envelope *ledger.ActionEnvelope) error {
	action, err := envelope.Decode()
	if err != nil {
		return fmt.Errorf("undecodable transaction action: %v", err)
	}

	switch intent.Kind {
	case models.IntentKindFullTransfer:
		if action.Type() != ledger.ActionBuyFull {
			return fmt.Errorf("transaction action %s does not settle a full transfer", action.Type())
		}
	case models.IntentKindSubscription:
		if action.Type() != ledger.ActionBuySubscription {
			return fmt.Errorf("transaction action %s does not settle a subscription", action.Type())
		}
	default:
		return fmt.Errorf("intent kind %s cannot settle on chain", intent.Kind)
	}

	return nil
}

// commitAcceptance performs the single atomic settlement step: the intent
// becomes Verified, the entitlement is granted, the fee entry is appended,
// and a full transfer marks its listing sold. Partial application is an
// unrecoverable inconsistency, so any failure rolls the whole unit back and
// raises an alert.
func (s *ReconciliationService) commitAcceptance(intent *models.PurchaseIntent) error {
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		now := time.Now()
		intent.Status = models.IntentStatusVerified
		intent.ProcessedAt = &now
		intent.NextRetryAt = nil
		if err := tx.Save(intent).Error; err != nil {
			return fmt.Errorf("failed to update intent: %w", err)
		}

		entitlement, err := s.buildEntitlement(tx, intent, now)
		if err != nil {
			return err
		}
		if err := s.entitlements.GrantTx(tx, entitlement); err != nil {
			return err
		}

		if err := s.fees.RecordTx(tx, intent); err != nil {
			return err
		}

		if intent.Kind == models.IntentKindFullTransfer {
			if err := s.listings.MarkSold(tx, intent.ListingID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		_ = s.alerts.Raise(models.AlertSeverityCritical, "reconciliation_commit",
			"settlement commit failed and was rolled back",
			map[string]interface{}{
				"intent_id": intent.ID.String(),
				"reference": intent.PaymentReference,
				"error":     err.Error(),
			})
		return fmt.Errorf("%v: %w", err, apperrors.ErrAtomicCommitFailure)
	}

	logrus.WithFields(logrus.Fields{
		"intent_id": intent.ID,
		"reference": intent.PaymentReference,
		"kind":      intent.Kind,
	}).Info("Settlement verified and committed")

	return nil
}

func (s *ReconciliationService) buildEntitlement(tx *gorm.DB, intent *models.PurchaseIntent, now time.Time) (*models.Entitlement, error) {
	var listing models.Listing
	if err := tx.First(&listing, intent.ListingID).Error; err != nil {
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}

	subjectID := listing.ID
	if listing.AgentID != nil {
		subjectID = *listing.AgentID
	}

	entitlement := &models.Entitlement{
		UserID:      intent.BuyerID,
		SubjectID:   subjectID,
		GrantedFrom: intent.ID,
	}

	switch intent.Kind {
	case models.IntentKindFullTransfer:
		entitlement.Kind = models.EntitlementKindOwned
	case models.IntentKindSubscription:
		if listing.SubscriptionDuration == nil {
			return nil, fmt.Errorf("listing lost subscription terms: %w", apperrors.ErrInvalidTerms)
		}
		expiry := now.Add(time.Duration(*listing.SubscriptionDuration) * time.Second)
		entitlement.Kind = models.EntitlementKindSubscription
		entitlement.ExpiresAt = &expiry
	case models.IntentKindListingCredit:
		entitlement.Kind = models.EntitlementKindCredit
		entitlement.CreditPoints = intent.DeclaredAmountMinor / s.config.Reconciliation.CreditUnitMinor
	}

	return entitlement, nil
}

// reject records a definitive terminal rejection. Rejected intents never
// retry; the buyer re-initiates with a fresh reference if they want to try
// again.
func (s *ReconciliationService) reject(intent *models.PurchaseIntent, reason string) (*models.PurchaseIntent, error) {
	now := time.Now()
	intent.Status = models.IntentStatusRejected
	intent.RejectReason = reason
	intent.ProcessedAt = &now
	intent.NextRetryAt = nil

	if err := s.db.Save(intent).Error; err != nil {
		return nil, fmt.Errorf("failed to reject intent: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"intent_id": intent.ID,
		"reference": intent.PaymentReference,
		"reason":    reason,
	}).Warn("Settlement rejected")

	return intent, nil
}

// scheduleRetry pushes the next evaluation out with exponential backoff.
// When the attempt budget is exhausted the intent stays Pending but leaves
// the poller's view, and a support-visible alert fires instead of a silent
// drop.
func (s *ReconciliationService) scheduleRetry(intent *models.PurchaseIntent, cause string) {
	intent.Attempts++

	if intent.Attempts >= s.config.Reconciliation.MaxSettlementAttempts {
		intent.NextRetryAt = nil
		if err := s.db.Save(intent).Error; err != nil {
			logrus.WithError(err).WithField("intent_id", intent.ID).Error("Failed to park exhausted intent")
			return
		}
		_ = s.alerts.Raise(models.AlertSeverityCritical, "reconciliation_retry",
			"settlement retry budget exhausted, intent needs manual review",
			map[string]interface{}{
				"intent_id": intent.ID.String(),
				"reference": intent.PaymentReference,
				"attempts":  intent.Attempts,
				"cause":     cause,
			})
		return
	}

	backoff := time.Duration(s.config.Reconciliation.BackoffBaseSeconds) * time.Second
	for i := 1; i < intent.Attempts; i++ {
		backoff *= 2
		if backoff >= time.Duration(s.config.Reconciliation.BackoffCapSeconds)*time.Second {
			backoff = time.Duration(s.config.Reconciliation.BackoffCapSeconds) * time.Second
			break
		}
	}

	next := time.Now().Add(backoff)
	intent.NextRetryAt = &next
	if err := s.db.Save(intent).Error; err != nil {
		logrus.WithError(err).WithField("intent_id", intent.ID).Error("Failed to schedule retry")
	}
}

func (s *ReconciliationService) intentByReference(reference string) (*models.PurchaseIntent, error) {
	var intent models.PurchaseIntent
	err := s.db.Where("payment_reference = ?", reference).First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("reference %s: %w", reference, apperrors.ErrUnknownReference)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &intent, nil
}

// keyedMutex hands out one mutex per payment reference so distinct
// references settle fully in parallel while duplicate deliveries of the
// same reference queue behind each other.
type keyedMutex struct {
	mu    *sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() keyedMutex {
	return keyedMutex{
		mu:    &sync.Mutex{},
		locks: make(map[string]*refLock),
	}
}

// Lock acquires the lease for key and returns its release function.
func (k keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
