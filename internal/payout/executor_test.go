package payout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

func testRequest() domain.PayoutRequest {
	return domain.PayoutRequest{
		PlatformID:       "plat-1",
		Amount:           decimal.RequireFromString("123.45"),
		Currency:         "USDC",
		RecipientAddress: "0x1111111111111111111111111111111111111111",
	}
}

func TestRecordOnlyExecutor(t *testing.T) {
	e := NewRecordOnlyExecutor()
	result, err := e.Execute(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, result.TxHash)
	assert.Empty(t, result.Err)
}

func TestHTTPExecutor(t *testing.T) {
	t.Run("posts request and returns tx hash", func(t *testing.T) {
		var got executeRequest
		var headers http.Header
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/payouts", r.URL.Path)
			headers = r.Header.Clone()
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"tx_hash":"0xfeed"}`))
		}))
		defer srv.Close()

		e := NewHTTPExecutor(srv.URL, "shared-secret")
		result, err := e.Execute(context.Background(), testRequest())
		require.NoError(t, err)

		assert.Equal(t, "0xfeed", result.TxHash)
		assert.Empty(t, result.Err)
		assert.Equal(t, "plat-1", got.PlatformID)
		assert.Equal(t, "123.45", got.Amount)
		assert.NotEmpty(t, headers.Get("X-LL-Signature"))
		assert.NotEmpty(t, headers.Get("X-LL-Timestamp"))
	})

	t.Run("no key means unsigned requests", func(t *testing.T) {
		var headers http.Header
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers = r.Header.Clone()
			_, _ = w.Write([]byte(`{"tx_hash":"0xfeed"}`))
		}))
		defer srv.Close()

		e := NewHTTPExecutor(srv.URL, "")
		_, err := e.Execute(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Empty(t, headers.Get("X-LL-Signature"))
	})

	t.Run("business failure surfaces in result, not error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"insufficient balance"}`))
		}))
		defer srv.Close()

		e := NewHTTPExecutor(srv.URL, "")
		result, err := e.Execute(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Equal(t, "insufficient balance", result.Err)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		e := NewHTTPExecutor(srv.URL, "")
		_, err := e.Execute(context.Background(), testRequest())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})
}
