// internal/ledger/client_test.go
package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuralnex/legionx-backend/internal/apperrors"
	"github.com/neuralnex/legionx-backend/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*IndexerClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewIndexerClient(config.LedgerConfig{
		IndexerURL:     server.URL,
		APIKey:         "test-key",
		RequestTimeout: 5,
	})
	return client, server
}

func TestGetTransactionDecodesResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions/deadbeef", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(Transaction{
			Hash:          "deadbeef",
			Confirmations: 3,
			Outputs: []TxOutput{
				{Address: "addr_seller", Asset: "lovelace", AmountMinor: 100},
			},
		})
	})

	tx, err := client.GetTransaction(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, 3, tx.Confirmations)
	assert.Equal(t, int64(100), tx.PaidTo("addr_seller", "lovelace"))
}

func TestGetTransactionNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetTransaction(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTxNotFound.Code, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsTransient(err))
}

func TestGetTransactionServerErrorIsTransient(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetTransaction(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNetworkUnavailable.Code, apperrors.CodeOf(err))
}

func TestGetTransactionConnectionFailure(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.GetTransaction(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNetworkUnavailable.Code, apperrors.CodeOf(err))
}

func TestSubmitReturnsHash(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transactions", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"hash": "cafebabe"})
	})

	hash, err := client.Submit(context.Background(), []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, "cafebabe", hash)
}

func TestSubmitRejection(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.Submit(context.Background(), []byte{0x01})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}
