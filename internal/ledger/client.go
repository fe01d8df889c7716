// internal/ledger/client.go
// Package ledger talks to the public chain through an indexer: transaction
// lookups with confirmation depth, and submission of pre-signed
// transactions. Transaction construction and signing happen client-side and
// are opaque to this service.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neuralnex/legionx-backend/internal/apperrors"
	"github.com/neuralnex/legionx-backend/internal/config"
)

type TxOutput struct {
	Address     string `json:"address"`
	Asset       string `json:"asset"`
	AmountMinor int64  `json:"amount_minor"`
}

type Transaction struct {
	Hash          string          `json:"hash"`
	Confirmations int             `json:"confirmations"`
	Inputs        []TxOutput      `json:"inputs"`
	Outputs       []TxOutput      `json:"outputs"`
	Metadata      *ActionEnvelope `json:"metadata,omitempty"`
}

// PaidTo returns the total amount of asset the transaction pays to address.
func (t *Transaction) PaidTo(address, asset string) int64 {
	var total int64
	for _, out := range t.Outputs {
		if out.Address == address && out.Asset == asset {
			total += out.AmountMinor
		}
	}
	return total
}

// Client is the chain-facing dependency of the reconciliation engine.
type Client interface {
	GetTransaction(ctx context.Context, hash string) (*Transaction, error)
	Submit(ctx context.Context, signedTx []byte) (string, error)
}

// IndexerClient implements Client over a JSON HTTP chain indexer.
type IndexerClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewIndexerClient(cfg config.LedgerConfig) *IndexerClient {
	return &IndexerClient{
		baseURL: cfg.IndexerURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
	}
}

func (c *IndexerClient) GetTransaction(ctx context.Context, hash string) (*Transaction, error) {
	url := fmt.Sprintf("%s/v1/transactions/%s", c.baseURL, hash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logrus.WithError(err).WithField("tx_hash", hash).Warn("Ledger indexer unreachable")
		return nil, fmt.Errorf("indexer request failed: %w", apperrors.ErrNetworkUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("transaction %s: %w", hash, apperrors.ErrTxNotFound)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("indexer returned %d: %w", resp.StatusCode, apperrors.ErrNetworkUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("indexer returned unexpected status %d", resp.StatusCode)
	}

	var tx Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}

	return &tx, nil
}

func (c *IndexerClient) Submit(ctx context.Context, signedTx []byte) (string, error) {
	url := fmt.Sprintf("%s/v1/transactions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(signedTx))
	if err != nil {
		return "", fmt.Errorf("failed to build submit request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/cbor")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit request failed: %w", apperrors.ErrNetworkUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("indexer returned %d: %w", resp.StatusCode, apperrors.ErrNetworkUnavailable)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("submit rejected with status %d", resp.StatusCode)
	}

	var result struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode submit response: %w", err)
	}

	return result.Hash, nil
}

func (c *IndexerClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
