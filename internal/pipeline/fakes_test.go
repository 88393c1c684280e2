package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	walletA = "0x1111111111111111111111111111111111111111"
	walletB = "0x2222222222222222222222222222222222222222"
)

type fakePlatforms struct {
	platforms []domain.Platform
	err       error
}

func (f *fakePlatforms) ListActive(ctx context.Context) ([]domain.Platform, error) {
	return f.platforms, f.err
}

type fakeVenue struct {
	mu    sync.Mutex
	fills map[string][]domain.Fill
	errs  map[string]error
	calls int
}

func (f *fakeVenue) UserFills(ctx context.Context, wallet string) ([]domain.Fill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[wallet]; err != nil {
		return nil, err
	}
	return f.fills[wallet], nil
}

// fakeLedger is an in-memory fee transaction store with the same
// (platform_id, trade_id) dedup semantics as the Postgres store.
type fakeLedger struct {
	mu        sync.Mutex
	rows      []domain.FeeTransaction
	seen      map[[2]string]bool
	insertErr error
	nextID    int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{seen: map[[2]string]bool{}}
}

func (f *fakeLedger) InsertBatch(ctx context.Context, txs []domain.FeeTransaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	var inserted int64
	for _, tx := range txs {
		key := [2]string{tx.PlatformID, tx.TradeID}
		if f.seen[key] {
			continue
		}
		f.seen[key] = true
		f.nextID++
		tx.ID = f.nextID
		f.rows = append(f.rows, tx)
		inserted++
	}
	return inserted, nil
}

func (f *fakeLedger) ListByPlatform(ctx context.Context, platformID string, filter domain.FeeTxFilter) ([]domain.FeeTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FeeTransaction
	for _, tx := range f.rows {
		if tx.PlatformID == platformID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListWindow(ctx context.Context, platformID string, start, end time.Time) ([]domain.FeeTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FeeTransaction
	for _, tx := range f.rows {
		if tx.PlatformID == platformID && !tx.CreatedAt.Before(start) && tx.CreatedAt.Before(end) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeLedger) SumWindow(ctx context.Context, platformID string, start, end time.Time) (domain.LedgerTotals, error) {
	rows, _ := f.ListWindow(ctx, platformID, start, end)
	totals := domain.LedgerTotals{
		TotalVolume:    decimal.Zero,
		TotalFees:      decimal.Zero,
		PlatformShare:  decimal.Zero,
		LiquidlabShare: decimal.Zero,
	}
	for _, tx := range rows {
		totals.TotalVolume = totals.TotalVolume.Add(tx.TradeVolume)
		totals.TotalFees = totals.TotalFees.Add(tx.TotalFee)
		totals.PlatformShare = totals.PlatformShare.Add(tx.PlatformShare)
		totals.LiquidlabShare = totals.LiquidlabShare.Add(tx.LiquidlabShare)
		totals.TradeCount++
	}
	return totals, nil
}

func (f *fakeLedger) SetStatus(ctx context.Context, id int64, status domain.FeeTxStatus, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeCheckpoints struct {
	mu     sync.Mutex
	marks  map[string]time.Time
	getErr error
	advErr error
}

func newFakeCheckpoints() *fakeCheckpoints {
	return &fakeCheckpoints{marks: map[string]time.Time{}}
}

func (f *fakeCheckpoints) Get(ctx context.Context, platformID string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return time.Time{}, f.getErr
	}
	return f.marks[platformID], nil
}

func (f *fakeCheckpoints) Advance(ctx context.Context, platformID string, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.advErr != nil {
		return f.advErr
	}
	if ts.After(f.marks[platformID]) {
		f.marks[platformID] = ts
	}
	return nil
}

// fakeSummaries implements both the aggregator's writer and the preparer's
// reader, keyed the way the Postgres store keys rows.
type fakeSummaries struct {
	mu      sync.Mutex
	rows    map[string]domain.RevenueSummary
	upserts int
}

func newFakeSummaries() *fakeSummaries {
	return &fakeSummaries{rows: map[string]domain.RevenueSummary{}}
}

func summaryKey(platformID string, period domain.Period, start time.Time) string {
	return platformID + "|" + string(period) + "|" + start.UTC().Format(time.RFC3339)
}

func (f *fakeSummaries) Upsert(ctx context.Context, s domain.RevenueSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.rows[summaryKey(s.PlatformID, s.Period, s.StartDate)] = s
	return nil
}

func (f *fakeSummaries) Get(ctx context.Context, platformID string, period domain.Period, startDate time.Time) (domain.RevenueSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[summaryKey(platformID, period, startDate)]
	if !ok {
		return domain.RevenueSummary{}, domain.ErrNotFound
	}
	return s, nil
}

type fakePayouts struct {
	mu      sync.Mutex
	records map[string]domain.PayoutRecord
	order   []string
}

func newFakePayouts() *fakePayouts {
	return &fakePayouts{records: map[string]domain.PayoutRecord{}}
}

func (f *fakePayouts) Create(ctx context.Context, p domain.PayoutRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// One non-failed record per settlement window, matching the partial
	// unique index on the payouts table.
	for _, existing := range f.records {
		if existing.PlatformID == p.PlatformID && existing.Status != domain.PayoutFailed &&
			existing.PeriodStart.Equal(p.PeriodStart) && existing.PeriodEnd.Equal(p.PeriodEnd) {
			return domain.ErrAlreadyExists
		}
	}
	f.records[p.ID] = p
	f.order = append(f.order, p.ID)
	return nil
}

func (f *fakePayouts) GetByID(ctx context.Context, id string) (domain.PayoutRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.records[id]
	if !ok {
		return domain.PayoutRecord{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakePayouts) ListByPlatform(ctx context.Context, platformID string, limit, offset int) ([]domain.PayoutRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.PayoutRecord
	for _, id := range f.order {
		if f.records[id].PlatformID == platformID {
			out = append(out, f.records[id])
		}
	}
	return out, nil
}

func (f *fakePayouts) SumNonFailed(ctx context.Context, platformID string, periodStart, periodEnd time.Time) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := decimal.Zero
	for _, p := range f.records {
		if p.PlatformID != platformID || p.Status == domain.PayoutFailed {
			continue
		}
		if p.PeriodStart.Equal(periodStart) && p.PeriodEnd.Equal(periodEnd) {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (f *fakePayouts) SetStatus(ctx context.Context, id string, status domain.PayoutStatus, txHash, failureReason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	if txHash != "" {
		p.TxHash = txHash
	}
	if failureReason != "" {
		p.FailureReason = failureReason
	}
	f.records[id] = p
	return nil
}

type fakeExecutor struct {
	mu      sync.Mutex
	results []domain.PayoutResult
	err     error
	calls   []domain.PayoutRequest
}

func (f *fakeExecutor) Execute(ctx context.Context, req domain.PayoutRequest) (domain.PayoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return domain.PayoutResult{}, f.err
	}
	if len(f.results) == 0 {
		return domain.PayoutResult{TxHash: "0xabc"}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

type fakeRevenueCache struct {
	mu            sync.Mutex
	snapshot      []domain.PlatformRevenue
	invalidations int
}

func (f *fakeRevenueCache) Set(ctx context.Context, revenues []domain.PlatformRevenue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = revenues
	return nil
}

func (f *fakeRevenueCache) Get(ctx context.Context) ([]domain.PlatformRevenue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot == nil {
		return nil, domain.ErrNotFound
	}
	return f.snapshot, nil
}

func (f *fakeRevenueCache) Invalidate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = nil
	f.invalidations++
	return nil
}

type fakeLocks struct {
	mu       sync.Mutex
	held     bool
	acquires int
}

func (f *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	if f.held {
		return nil, domain.ErrLockHeld
	}
	f.held = true
	return func() {
		f.mu.Lock()
		f.held = false
		f.mu.Unlock()
	}, nil
}

var (
	_ domain.FeeTransactionStore = (*fakeLedger)(nil)
	_ domain.CheckpointStore     = (*fakeCheckpoints)(nil)
	_ domain.PayoutStore         = (*fakePayouts)(nil)
	_ domain.PayoutExecutor      = (*fakeExecutor)(nil)
	_ domain.LockManager         = (*fakeLocks)(nil)
	_ domain.RevenueCache        = (*fakeRevenueCache)(nil)
)
