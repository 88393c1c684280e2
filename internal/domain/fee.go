package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeTxStatus is the lifecycle state of a fee transaction. Status only moves
// forward (pending -> claimed -> distributed, or -> failed); the admin
// override endpoint is the single exception.
type FeeTxStatus string

const (
	FeeTxPending     FeeTxStatus = "pending"
	FeeTxClaimed     FeeTxStatus = "claimed"
	FeeTxDistributed FeeTxStatus = "distributed"
	FeeTxFailed      FeeTxStatus = "failed"
)

// ValidFeeTxStatus reports whether s is a known fee transaction status.
func ValidFeeTxStatus(s FeeTxStatus) bool {
	switch s {
	case FeeTxPending, FeeTxClaimed, FeeTxDistributed, FeeTxFailed:
		return true
	}
	return false
}

// FeeTransaction is one row of the append-only fee ledger: the fee split for
// a single venue fill attributed to a platform. (PlatformID, TradeID) is
// unique; re-ingesting the same fill is a no-op.
type FeeTransaction struct {
	ID             int64           `json:"id"`
	PlatformID     string          `json:"platform_id"`
	TradeID        string          `json:"trade_id"`
	TradeType      TradeType       `json:"trade_type"`
	TradeVolume    decimal.Decimal `json:"trade_volume"`
	FeeRate        decimal.Decimal `json:"fee_rate"`
	TotalFee       decimal.Decimal `json:"total_fee"`
	PlatformShare  decimal.Decimal `json:"platform_share"`
	LiquidlabShare decimal.Decimal `json:"liquidlab_share"`
	Status         FeeTxStatus     `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	ClaimedAt      *time.Time      `json:"claimed_at,omitempty"`
	DistributedAt  *time.Time      `json:"distributed_at,omitempty"`
}

// CheckSplit verifies the ledger invariant platformShare + liquidlabShare ==
// totalFee. Rows that fail this check must never be persisted; downstream
// aggregation trusts the ledger unconditionally.
func (t FeeTransaction) CheckSplit() bool {
	return t.PlatformShare.Add(t.LiquidlabShare).Equal(t.TotalFee)
}

// LedgerTotals is the aggregate of a set of ledger rows over a time window.
type LedgerTotals struct {
	TotalVolume    decimal.Decimal
	TotalFees      decimal.Decimal
	PlatformShare  decimal.Decimal
	LiquidlabShare decimal.Decimal
	TradeCount     int64
}
