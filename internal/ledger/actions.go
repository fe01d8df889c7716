// internal/ledger/actions.go
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

type ActionType string

const (
	ActionBuyFull         ActionType = "buy_full"
	ActionBuySubscription ActionType = "buy_subscription"
	ActionEditListing     ActionType = "edit_listing"
	ActionDelist          ActionType = "delist"
)

// MarketAction is the closed set of contract actions mirrored in
// transaction metadata. Each arm carries only the fields that action needs.
type MarketAction interface {
	Type() ActionType
}

type BuyFullAction struct {
	BuyerAddress string `json:"buyer_address"`
}

func (BuyFullAction) Type() ActionType { return ActionBuyFull }

type BuySubscriptionAction struct {
	BuyerAddress string `json:"buyer_address"`
}

func (BuySubscriptionAction) Type() ActionType { return ActionBuySubscription }

type EditListingAction struct {
	PriceMinor           int64  `json:"price_minor"`
	FullPriceMinor       *int64 `json:"full_price_minor,omitempty"`
	SubscriptionDuration *int64 `json:"subscription_duration,omitempty"`
}

func (EditListingAction) Type() ActionType { return ActionEditListing }

type DelistAction struct{}

func (DelistAction) Type() ActionType { return ActionDelist }

// ActionEnvelope is the wire form attached to a transaction's metadata: the
// action tag, its payload, and the hash of the listing terms it settles.
type ActionEnvelope struct {
	Action    ActionType      `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	TermsHash string          `json:"terms_hash"`
}

func EncodeAction(action MarketAction, termsHash string) (*ActionEnvelope, error) {
	payload, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("failed to encode action payload: %w", err)
	}

	return &ActionEnvelope{
		Action:    action.Type(),
		Payload:   payload,
		TermsHash: termsHash,
	}, nil
}

func (e *ActionEnvelope) Decode() (MarketAction, error) {
	switch e.Action {
	case ActionBuyFull:
		var a BuyFullAction
		if err := json.Unmarshal(e.Payload, &a); err != nil {
			return nil, fmt.Errorf("failed to decode buy_full payload: %w", err)
		}
		return a, nil
	case ActionBuySubscription:
		var a BuySubscriptionAction
		if err := json.Unmarshal(e.Payload, &a); err != nil {
			return nil, fmt.Errorf("failed to decode buy_subscription payload: %w", err)
		}
		return a, nil
	case ActionEditListing:
		var a EditListingAction
		if err := json.Unmarshal(e.Payload, &a); err != nil {
			return nil, fmt.Errorf("failed to decode edit_listing payload: %w", err)
		}
		return a, nil
	case ActionDelist:
		return DelistAction{}, nil
	default:
		return nil, fmt.Errorf("unknown market action %q", e.Action)
	}
}

// TermsHash computes the canonical digest of listing terms as mirrored
// on-chain. Field order is fixed; absent optional terms hash as -1 so
// "no full price" can never collide with a zero full price.
func TermsHash(sellerAddress string, priceMinor int64, fullPriceMinor, subscriptionDuration *int64) string {
	fullPrice := int64(-1)
	if fullPriceMinor != nil {
		fullPrice = *fullPriceMinor
	}
	duration := int64(-1)
	if subscriptionDuration != nil {
		duration = *subscriptionDuration
	}

	canonical := fmt.Sprintf("terms|v1|%s|%d|%d|%d", sellerAddress, priceMinor, fullPrice, duration)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
