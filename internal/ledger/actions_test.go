// internal/ledger/actions_test.go
package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionEnvelopeRoundTrip(t *testing.T) {
	fullPrice := int64(500)
	duration := int64(2592000)

	cases := []struct {
		name   string
		action MarketAction
	}{
		{"buy_full", BuyFullAction{BuyerAddress: "addr_buyer"}},
		{"buy_subscription", BuySubscriptionAction{BuyerAddress: "addr_buyer"}},
		{"edit_listing", EditListingAction{PriceMinor: 100, FullPriceMinor: &fullPrice, SubscriptionDuration: &duration}},
		{"delist", DelistAction{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			envelope, err := EncodeAction(tc.action, "abc123")
			require.NoError(t, err)
			assert.Equal(t, tc.action.Type(), envelope.Action)
			assert.Equal(t, "abc123", envelope.TermsHash)

			decoded, err := envelope.Decode()
			require.NoError(t, err)
			assert.Equal(t, tc.action, decoded)
		})
	}
}

func TestDecodeUnknownActionFails(t *testing.T) {
	envelope := &ActionEnvelope{Action: "steal_funds", Payload: []byte(`{}`)}
	_, err := envelope.Decode()
	assert.Error(t, err)
}

func TestTermsHashIsCanonical(t *testing.T) {
	fullPrice := int64(500)
	duration := int64(3600)

	h1 := TermsHash("addr_seller", 100, &fullPrice, &duration)
	h2 := TermsHash("addr_seller", 100, &fullPrice, &duration)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// Every term participates in the digest.
	assert.NotEqual(t, h1, TermsHash("addr_other", 100, &fullPrice, &duration))
	assert.NotEqual(t, h1, TermsHash("addr_seller", 101, &fullPrice, &duration))
	assert.NotEqual(t, h1, TermsHash("addr_seller", 100, nil, &duration))
	assert.NotEqual(t, h1, TermsHash("addr_seller", 100, &fullPrice, nil))
}

func TestTermsHashDistinguishesAbsentFromZero(t *testing.T) {
	zero := int64(0)
	assert.NotEqual(t,
		TermsHash("addr_seller", 100, nil, nil),
		TermsHash("addr_seller", 100, &zero, nil),
	)
}

func TestPaidToSumsMatchingOutputs(t *testing.T) {
	tx := &Transaction{
		Outputs: []TxOutput{
			{Address: "addr_seller", Asset: "lovelace", AmountMinor: 60},
			{Address: "addr_seller", Asset: "lovelace", AmountMinor: 40},
			{Address: "addr_seller", Asset: "other_token", AmountMinor: 999},
			{Address: "addr_change", Asset: "lovelace", AmountMinor: 5},
		},
	}

	assert.Equal(t, int64(100), tx.PaidTo("addr_seller", "lovelace"))
	assert.Equal(t, int64(0), tx.PaidTo("addr_missing", "lovelace"))
}
