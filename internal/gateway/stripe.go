// internal/gateway/stripe.go
// Package gateway wraps the fiat payment provider: checkout session
// creation and webhook signature verification.
package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/neuralnex/legionx-backend/internal/apperrors"
	"github.com/neuralnex/legionx-backend/internal/config"
)

// CheckoutSession is the payment link handed back to the buyer.
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	PaymentLink string `json:"payment_link"`
}

// WebhookEvent is a verified, provider-neutral settlement notification.
type WebhookEvent struct {
	EventID     string
	Type        string
	Reference   string // client reference, i.e. our payment reference
	AmountMinor int64
	Currency    string
	Completed   bool
}

type Gateway interface {
	CreateCheckoutSession(amountMinor int64, currency, reference, description string) (*CheckoutSession, error)
	VerifyWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error)
}

type StripeGateway struct {
	cfg config.PaymentConfig
}

func NewStripeGateway(cfg config.PaymentConfig) *StripeGateway {
	stripe.Key = cfg.StripeSecretKey

	return &StripeGateway{cfg: cfg}
}

func (g *StripeGateway) CreateCheckoutSession(amountMinor int64, currency, reference, description string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.cfg.CheckoutSuccessURL),
		CancelURL:         stripe.String(g.cfg.CheckoutCancelURL),
		ClientReferenceID: stripe.String(reference),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(amountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{
		SessionID:   s.ID,
		PaymentLink: s.URL,
	}, nil
}

func (g *StripeGateway) VerifyWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, g.cfg.StripeWebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrSignatureInvalid)
	}

	webhookEvent := &WebhookEvent{
		EventID: event.ID,
		Type:    string(event.Type),
	}

	if event.Type != "checkout.session.completed" {
		return webhookEvent, nil
	}

	var checkoutSession stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &checkoutSession); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session payload: %w", err)
	}

	webhookEvent.Reference = checkoutSession.ClientReferenceID
	webhookEvent.AmountMinor = checkoutSession.AmountTotal
	webhookEvent.Currency = string(checkoutSession.Currency)
	webhookEvent.Completed = true

	return webhookEvent, nil
}
