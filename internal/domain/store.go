package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// FeeTxFilter narrows fee transaction list queries.
type FeeTxFilter struct {
	Status    FeeTxStatus // empty means any
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// FeeTransactionStore persists the append-only fee ledger.
type FeeTransactionStore interface {
	// InsertBatch writes new ledger rows, silently skipping rows whose
	// (platform_id, trade_id) already exists. It returns the number of rows
	// actually inserted so callers can log dedup skips.
	InsertBatch(ctx context.Context, txs []FeeTransaction) (int64, error)
	ListByPlatform(ctx context.Context, platformID string, f FeeTxFilter) ([]FeeTransaction, error)
	ListWindow(ctx context.Context, platformID string, start, end time.Time) ([]FeeTransaction, error)
	// SumWindow aggregates ledger rows for a platform with created_at in
	// [start, end).
	SumWindow(ctx context.Context, platformID string, start, end time.Time) (LedgerTotals, error)
	// SetStatus advances a row's lifecycle status. Backwards transitions are
	// rejected with ErrInvalidStatus unless force is set (admin override).
	SetStatus(ctx context.Context, id int64, status FeeTxStatus, force bool) error
}

// RevenueSummaryStore persists derived summary rows keyed by
// (platform, period, start_date).
type RevenueSummaryStore interface {
	Upsert(ctx context.Context, s RevenueSummary) error
	Get(ctx context.Context, platformID string, period Period, startDate time.Time) (RevenueSummary, error)
	// Latest returns the most recent summary row for the platform and period.
	Latest(ctx context.Context, platformID string, period Period) (RevenueSummary, error)
	// ListPlatformRevenues returns one all-time row per platform, filtered to
	// platform earnings >= minRevenue and sorted descending by earnings.
	ListPlatformRevenues(ctx context.Context, minRevenue decimal.Decimal) ([]PlatformRevenue, error)
}

// PayoutStore persists payout records.
type PayoutStore interface {
	Create(ctx context.Context, p PayoutRecord) error
	GetByID(ctx context.Context, id string) (PayoutRecord, error)
	ListByPlatform(ctx context.Context, platformID string, limit, offset int) ([]PayoutRecord, error)
	// SumNonFailed totals payouts for a settlement window, excluding failed
	// records. The preparer subtracts this from aggregated earnings.
	SumNonFailed(ctx context.Context, platformID string, periodStart, periodEnd time.Time) (decimal.Decimal, error)
	// SetStatus transitions a payout record. txHash and failureReason are
	// recorded when non-empty.
	SetStatus(ctx context.Context, id string, status PayoutStatus, txHash, failureReason string) error
}

// CheckpointStore persists the per-platform ingestion high-water mark. The
// checkpoint must only move forward, and only after the corresponding ledger
// rows are durably committed.
type CheckpointStore interface {
	Get(ctx context.Context, platformID string) (time.Time, error)
	// Advance raises the checkpoint to ts if ts is later than the stored
	// value; earlier timestamps are ignored.
	Advance(ctx context.Context, platformID string, ts time.Time) error
}

// PlatformStore persists the tenant registry.
type PlatformStore interface {
	Create(ctx context.Context, p Platform) error
	GetByID(ctx context.Context, id string) (Platform, error)
	ListActive(ctx context.Context) ([]Platform, error)
	SetActive(ctx context.Context, id string, active bool) error
}
