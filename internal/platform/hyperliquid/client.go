// Package hyperliquid is the venue adapter for the Hyperliquid exchange. It
// wraps the public /info HTTP endpoint and the userFills WebSocket channel,
// converting venue wire types into domain types. It carries no business
// logic; fee attribution happens entirely downstream.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// MainnetAPIURL is the default Hyperliquid info endpoint.
const MainnetAPIURL = "https://api.hyperliquid.xyz"

// Client is an HTTP client for Hyperliquid's public info API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given API base URL. An empty baseURL
// selects mainnet.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = MainnetAPIURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// UserFills returns every fill the venue reports for the given wallet,
// oldest first is not guaranteed; callers filter and order by timestamp.
func (c *Client) UserFills(ctx context.Context, wallet string) ([]domain.Fill, error) {
	var wireFills []wireFill
	if err := c.doInfo(ctx, infoRequest{Type: "userFills", User: wallet}, &wireFills); err != nil {
		return nil, fmt.Errorf("hyperliquid: user fills for %s: %w", wallet, err)
	}

	fills := make([]domain.Fill, 0, len(wireFills))
	for _, wf := range wireFills {
		f, err := wf.toDomain()
		if err != nil {
			return nil, err
		}
		fills = append(fills, f)
	}
	return fills, nil
}

// Meta returns the perpetuals universe metadata.
func (c *Client) Meta(ctx context.Context) (Meta, error) {
	var m Meta
	if err := c.doInfo(ctx, infoRequest{Type: "meta"}, &m); err != nil {
		return Meta{}, fmt.Errorf("hyperliquid: meta: %w", err)
	}
	return m, nil
}

// L2Book returns an orderbook snapshot for the given coin.
func (c *Client) L2Book(ctx context.Context, coin string) (L2Book, error) {
	var book L2Book
	if err := c.doInfo(ctx, infoRequest{Type: "l2Book", Coin: coin}, &book); err != nil {
		return L2Book{}, fmt.Errorf("hyperliquid: l2 book %s: %w", coin, err)
	}
	return book, nil
}

// doInfo posts an info request and decodes the JSON response into out.
func (c *Client) doInfo(ctx context.Context, req infoRequest, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post /info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
