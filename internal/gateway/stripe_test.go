// internal/gateway/stripe_test.go
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuralnex/legionx-backend/internal/apperrors"
	"github.com/neuralnex/legionx-backend/internal/config"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload builds a Stripe-Signature header the way the provider does:
// t=<unix>,v1=<hmac-sha256(secret, "<unix>.<payload>")>.
func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newTestGateway() *StripeGateway {
	return NewStripeGateway(config.PaymentConfig{
		StripeSecretKey:     "sk_test_key",
		StripeWebhookSecret: testWebhookSecret,
		Currency:            "usd",
	})
}

func checkoutCompletedPayload(reference string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": "2022-11-15",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"object": "checkout.session",
				"client_reference_id": %q,
				"amount_total": %d,
				"currency": "usd"
			}
		}
	}`, reference, amount))
}

func TestVerifyWebhookAcceptsValidSignature(t *testing.T) {
	gw := newTestGateway()
	payload := checkoutCompletedPayload("gw_abc123", 1000)

	event, err := gw.VerifyWebhook(payload, signPayload(payload, testWebhookSecret))
	require.NoError(t, err)

	assert.Equal(t, "evt_test_1", event.EventID)
	assert.True(t, event.Completed)
	assert.Equal(t, "gw_abc123", event.Reference)
	assert.Equal(t, int64(1000), event.AmountMinor)
	assert.Equal(t, "usd", event.Currency)
}

func TestVerifyWebhookRefusesForgedSignature(t *testing.T) {
	gw := newTestGateway()
	payload := checkoutCompletedPayload("gw_abc123", 1000)

	_, err := gw.VerifyWebhook(payload, signPayload(payload, "whsec_wrong_secret"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrSignatureInvalid.Code, apperrors.CodeOf(err))
}

func TestVerifyWebhookRefusesTamperedPayload(t *testing.T) {
	gw := newTestGateway()
	payload := checkoutCompletedPayload("gw_abc123", 1000)
	header := signPayload(payload, testWebhookSecret)

	tampered := checkoutCompletedPayload("gw_abc123", 999999)
	_, err := gw.VerifyWebhook(tampered, header)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrSignatureInvalid.Code, apperrors.CodeOf(err))
}

func TestVerifyWebhookIgnoresOtherEventTypes(t *testing.T) {
	gw := newTestGateway()
	payload := []byte(`{
		"id": "evt_test_2",
		"object": "event",
		"api_version": "2022-11-15",
		"type": "payment_intent.created",
		"data": {"object": {}}
	}`)

	event, err := gw.VerifyWebhook(payload, signPayload(payload, testWebhookSecret))
	require.NoError(t, err)
	assert.False(t, event.Completed)
	assert.Empty(t, event.Reference)
}
