package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

func TestWireFillToDomain(t *testing.T) {
	t.Run("parses decimal strings and millis", func(t *testing.T) {
		wf := wireFill{
			Coin:    "ETH",
			Px:      "2500.5",
			Sz:      "0.25",
			Side:    "B",
			Time:    1718000000000,
			Hash:    "0xdeadbeef",
			Crossed: true,
			Tid:     987654321,
		}
		f, err := wf.toDomain()
		require.NoError(t, err)

		assert.Equal(t, "987654321", f.TradeID)
		assert.Equal(t, "ETH", f.Coin)
		assert.Equal(t, "B", f.Side)
		assert.True(t, f.Price.Equal(decimal.RequireFromString("2500.5")))
		assert.True(t, f.Size.Equal(decimal.RequireFromString("0.25")))
		assert.Equal(t, time.UnixMilli(1718000000000).UTC(), f.Timestamp)
		assert.True(t, f.Crossed)
		assert.Equal(t, domain.TradeTypePerp, f.TradeType())
	})

	t.Run("spot pair classifies as spot", func(t *testing.T) {
		wf := wireFill{Coin: "PURR/USDC", Px: "1", Sz: "1"}
		f, err := wf.toDomain()
		require.NoError(t, err)
		assert.Equal(t, domain.TradeTypeSpot, f.TradeType())
	})

	t.Run("bad price rejected", func(t *testing.T) {
		wf := wireFill{Coin: "ETH", Px: "?", Sz: "1"}
		_, err := wf.toDomain()
		require.Error(t, err)
	})
}

func TestClientUserFills(t *testing.T) {
	t.Run("posts userFills query and decodes", func(t *testing.T) {
		var gotReq infoRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			assert.Equal(t, "/info", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"coin":"ETH","px":"2500","sz":"1","side":"B","time":1718000000000,"tid":1},
				{"coin":"PURR/USDC","px":"0.5","sz":"100","side":"A","time":1718000001000,"tid":2}
			]`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL)
		fills, err := c.UserFills(context.Background(), "0xwallet")
		require.NoError(t, err)

		assert.Equal(t, "userFills", gotReq.Type)
		assert.Equal(t, "0xwallet", gotReq.User)
		require.Len(t, fills, 2)
		assert.Equal(t, "1", fills[0].TradeID)
		assert.Equal(t, "2", fills[1].TradeID)
	})

	t.Run("non-200 surfaces status and body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewClient(srv.URL)
		_, err := c.UserFills(context.Background(), "0xwallet")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("empty base URL selects mainnet", func(t *testing.T) {
		c := NewClient("")
		assert.Equal(t, MainnetAPIURL, c.baseURL)
	})
}
