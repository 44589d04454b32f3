package buildium

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(Config{
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})
	return client, server
}

func TestClient_GetBankDeposit(t *testing.T) {
	t.Run("sends credential headers and decodes payload", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/bankaccounts/10407/deposits/974932", r.URL.Path)
			assert.Equal(t, "client-id", r.Header.Get("x-buildium-client-id"))
			assert.Equal(t, "client-secret", r.Header.Get("x-buildium-client-secret"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"Id":974932,"Amount":500.00,"Date":"2026-08-15","PaymentTransactions":[{"Id":111,"Amount":120.00},{"Id":222,"Amount":380.00}]}`))
		}))
		defer server.Close()

		deposit, err := client.GetBankDeposit(context.Background(), 10407, 974932)
		assert.NoError(t, err)
		id, ok := deposit.ID.Int64()
		assert.True(t, ok)
		assert.Equal(t, int64(974932), id)
		assert.Equal(t, 500.00, deposit.HeaderAmount())
		assert.Len(t, deposit.EmbeddedComponents(), 2)
	})

	t.Run("non-2xx is an APIError with status and body", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"UserMessage":"bad credentials"}`))
		}))
		defer server.Close()

		_, err := client.GetBankDeposit(context.Background(), 10407, 974932)
		assert.Error(t, err)
		apiErr, ok := err.(*APIError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Contains(t, apiErr.Body, "bad credentials")
	})
}

func TestClient_GetGeneralLedgerTransaction(t *testing.T) {
	t.Run("falls back to legacy path on 404", func(t *testing.T) {
		var paths []string
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			if r.URL.Path == "/generalledger/transactions/974932" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(`{"Id":974932,"DepositDetails":{"PaymentTransactions":[{"Id":111,"Amount":120.00}]}}`))
		}))
		defer server.Close()

		tx, err := client.GetGeneralLedgerTransaction(context.Background(), 974932)
		assert.NoError(t, err)
		assert.Equal(t, []string{"/generalledger/transactions/974932", "/gltransactions/974932"}, paths)
		assert.Len(t, tx.DepositDetails.PaymentTransactions, 1)
	})

	t.Run("non-404 error does not fall back", func(t *testing.T) {
		var calls int
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := client.GetGeneralLedgerTransaction(context.Background(), 974932)
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.False(t, IsNotFound(err))
	})

	t.Run("404 on both paths surfaces not found", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := client.GetGeneralLedgerTransaction(context.Background(), 974932)
		assert.True(t, IsNotFound(err))
	})
}

func TestClient_GetBankAccount(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bankaccounts/10407", r.URL.Path)
		w.Write([]byte(`{"Id":10407,"Name":"Operating Account","GLAccount":{"Id":5001,"Type":"Asset"}}`))
	}))
	defer server.Close()

	account, err := client.GetBankAccount(context.Background(), 10407)
	assert.NoError(t, err)
	assert.Equal(t, "Operating Account", account.Name)
	glID, ok := account.NestedGLAccountID()
	assert.True(t, ok)
	assert.Equal(t, int64(5001), glID)
}
