package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// LedgerReader is the slice of the fee transaction store the aggregator needs.
type LedgerReader interface {
	SumWindow(ctx context.Context, platformID string, start, end time.Time) (domain.LedgerTotals, error)
}

// SummaryWriter upserts recomputed summary rows.
type SummaryWriter interface {
	Upsert(ctx context.Context, s domain.RevenueSummary) error
}

// Aggregator recomputes revenue summaries from the fee ledger. Each
// recomputation is a full scan of the window, never a delta on prior summary
// state, so re-running it any number of times against the same ledger yields
// the same row.
type Aggregator struct {
	ledger    LedgerReader
	summaries SummaryWriter
	cache     domain.RevenueCache
	now       func() time.Time
	logger    *slog.Logger
}

// NewAggregator creates an Aggregator. cache may be nil; when set, the
// leaderboard snapshot is dropped after each full recomputation so reads
// never serve pre-aggregation data for longer than one cycle.
func NewAggregator(ledger LedgerReader, summaries SummaryWriter, cache domain.RevenueCache, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		ledger:    ledger,
		summaries: summaries,
		cache:     cache,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "aggregator")),
	}
}

// Recompute rebuilds the summary row for one (platform, period) window and
// upserts it keyed by (platform, period, window start).
func (a *Aggregator) Recompute(ctx context.Context, platformID string, period domain.Period) error {
	now := a.now().UTC()
	start := period.WindowStart(now)

	totals, err := a.ledger.SumWindow(ctx, platformID, start, now)
	if err != nil {
		return fmt.Errorf("aggregator: sum %s window for %s: %w", period, platformID, err)
	}

	summary := domain.RevenueSummary{
		PlatformID:        platformID,
		Period:            period,
		StartDate:         start,
		TotalVolume:       totals.TotalVolume,
		TotalFees:         totals.TotalFees,
		PlatformEarnings:  totals.PlatformShare,
		LiquidlabEarnings: totals.LiquidlabShare,
		TradeCount:        totals.TradeCount,
		LastUpdated:       now,
	}

	if err := a.summaries.Upsert(ctx, summary); err != nil {
		return fmt.Errorf("aggregator: upsert %s summary for %s: %w", period, platformID, err)
	}

	a.logger.Debug("summary recomputed",
		slog.String("platform_id", platformID),
		slog.String("period", string(period)),
		slog.Int64("trade_count", totals.TradeCount),
	)
	return nil
}

// RecomputeAll rebuilds every aggregation window for one platform. It stops
// at the first error; the next ingestion cycle recomputes from scratch
// anyway.
func (a *Aggregator) RecomputeAll(ctx context.Context, platformID string) error {
	for _, period := range domain.AllPeriods {
		if err := a.Recompute(ctx, platformID, period); err != nil {
			return err
		}
	}

	// The cached leaderboard is now stale; the next read rebuilds it from
	// the fresh summaries.
	if a.cache != nil {
		if err := a.cache.Invalidate(ctx); err != nil {
			a.logger.Warn("leaderboard cache invalidation failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
