// Package payout provides implementations of the payout executor boundary.
// The real fund transfer and its signing keys live in a separate distribution
// service; this package either records the intent or hands it off over HTTP.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/teejy22/liquidlab-revenue/internal/crypto"
	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// RecordOnlyExecutor accepts every payout without moving funds. It is the
// default when no executor endpoint is configured: records are created and
// tracked, and an operator settles them out of band.
type RecordOnlyExecutor struct{}

// NewRecordOnlyExecutor creates a RecordOnlyExecutor.
func NewRecordOnlyExecutor() *RecordOnlyExecutor {
	return &RecordOnlyExecutor{}
}

// Execute reports success with no transaction hash.
func (e *RecordOnlyExecutor) Execute(ctx context.Context, req domain.PayoutRequest) (domain.PayoutResult, error) {
	return domain.PayoutResult{}, nil
}

// HTTPExecutor submits payout requests to an external distribution service.
// Requests are HMAC-signed when a key is configured.
type HTTPExecutor struct {
	baseURL string
	signer  *crypto.RequestSigner
	client  *http.Client
}

// NewHTTPExecutor creates an HTTPExecutor for the given endpoint. When apiKey
// is non-empty each request carries HMAC signature headers derived from it.
func NewHTTPExecutor(baseURL, apiKey string) *HTTPExecutor {
	e := &HTTPExecutor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	if apiKey != "" {
		e.signer = &crypto.RequestSigner{Key: "revenued", Secret: apiKey}
	}
	return e
}

type executeRequest struct {
	PlatformID       string `json:"platform_id"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	RecipientAddress string `json:"recipient_address"`
}

type executeResponse struct {
	TxHash string `json:"tx_hash"`
	Error  string `json:"error"`
}

// Execute posts the request to the distribution service. A transport or
// non-2xx failure is returned as an error; a 2xx response with an error field
// is surfaced in the result so the caller records it as a failed payout.
func (e *HTTPExecutor) Execute(ctx context.Context, req domain.PayoutRequest) (domain.PayoutResult, error) {
	payload := executeRequest{
		PlatformID:       req.PlatformID,
		Amount:           req.Amount.String(),
		Currency:         req.Currency,
		RecipientAddress: req.RecipientAddress,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.PayoutResult{}, fmt.Errorf("payout: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/payouts", bytes.NewReader(body))
	if err != nil {
		return domain.PayoutResult{}, fmt.Errorf("payout: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.signer != nil {
		for k, v := range e.signer.Headers(http.MethodPost, "/v1/payouts", string(body)) {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return domain.PayoutResult{}, fmt.Errorf("payout: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.PayoutResult{}, fmt.Errorf("payout: unexpected status %d: %s", resp.StatusCode, string(snippet))
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.PayoutResult{}, fmt.Errorf("payout: decode response: %w", err)
	}

	return domain.PayoutResult{TxHash: out.TxHash, Err: out.Error}, nil
}

var (
	_ domain.PayoutExecutor = (*RecordOnlyExecutor)(nil)
	_ domain.PayoutExecutor = (*HTTPExecutor)(nil)
)
