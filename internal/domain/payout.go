package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the state of a payout record. A failed payout is never
// retried in place; the next preparation cycle computes the still-outstanding
// amount and creates a fresh pending record.
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

// PayoutRecord tracks one payout of platform earnings for a settlement
// window. A (platform, periodStart, periodEnd) window is paid out at most
// once while its record is not failed.
type PayoutRecord struct {
	ID               string          `json:"id"`
	PlatformID       string          `json:"platform_id"`
	UserID           string          `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           PayoutStatus    `json:"status"`
	TxHash           string          `json:"tx_hash,omitempty"`
	FailureReason    string          `json:"failure_reason,omitempty"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	RecipientAddress string          `json:"recipient_address"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// PendingPayout is the read-API view of what a platform is currently owed.
type PendingPayout struct {
	PlatformID  string          `json:"platform_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
}

// PayoutRequest is the handoff to the external payout executor.
type PayoutRequest struct {
	PlatformID       string
	Amount           decimal.Decimal
	Currency         string
	RecipientAddress string
}

// PayoutResult is what the executor reports back. TxHash is set on success,
// Err describes the failure otherwise.
type PayoutResult struct {
	TxHash string
	Err    string
}

// PayoutExecutor performs the actual fund transfer. Its signing internals
// live outside this service; the preparer only records the outcome and never
// retries a specific submission.
type PayoutExecutor interface {
	Execute(ctx context.Context, req PayoutRequest) (PayoutResult, error)
}
