// Package pipeline contains the background processes that turn venue fills
// into attributed revenue: the checkpointed ingestion loop, the summary
// aggregator, the payout preparer, the report exporter, and the cron
// scheduler that drives them.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
	"github.com/teejy22/liquidlab-revenue/internal/fees"
	"github.com/teejy22/liquidlab-revenue/internal/notify"
)

// ingestionLockKey guards the ingestion cycle across service instances.
const ingestionLockKey = "ingestion:cycle"

// FillFetcher retrieves fills for a wallet from the venue.
type FillFetcher interface {
	UserFills(ctx context.Context, wallet string) ([]domain.Fill, error)
}

// PlatformLister supplies the registered platforms to attribute fills to.
type PlatformLister interface {
	ListActive(ctx context.Context) ([]domain.Platform, error)
}

// CycleStats summarizes one ingestion cycle for logging and the trigger API.
type CycleStats struct {
	Platforms int   `json:"platforms"`
	Ingested  int64 `json:"ingested"`
	Skipped   int64 `json:"skipped"`
	Failed    int   `json:"failed"`
}

// Ingestor is the checkpointed ingestion loop. Each cycle it pulls new fills
// for every active platform, computes fee splits, writes deduplicated ledger
// rows, refreshes that platform's summaries, and finally advances the
// platform's checkpoint. One platform's failure never blocks another's.
type Ingestor struct {
	platforms   PlatformLister
	venue       FillFetcher
	ledger      domain.FeeTransactionStore
	checkpoints domain.CheckpointStore
	aggregator  *Aggregator
	policy      *fees.PolicyTable
	locks       domain.LockManager
	notifier    Notifier

	// lockTTL bounds how long a crashed instance can hold the cycle lock.
	lockTTL time.Duration

	// maxConcurrent caps simultaneous venue calls to respect API rate limits.
	maxConcurrent int

	// running is the in-process half of the re-entrancy guard; overlapping
	// triggers are skipped, never queued.
	running atomic.Bool

	logger *slog.Logger
}

// NewIngestor creates an Ingestor. maxConcurrent values below 1 are clamped
// to 1, and a non-positive lockTTL falls back to 10 minutes.
func NewIngestor(
	platforms PlatformLister,
	venue FillFetcher,
	ledger domain.FeeTransactionStore,
	checkpoints domain.CheckpointStore,
	aggregator *Aggregator,
	policy *fees.PolicyTable,
	locks domain.LockManager,
	notifier Notifier,
	lockTTL time.Duration,
	maxConcurrent int,
	logger *slog.Logger,
) *Ingestor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &Ingestor{
		platforms:     platforms,
		venue:         venue,
		ledger:        ledger,
		checkpoints:   checkpoints,
		aggregator:    aggregator,
		policy:        policy,
		locks:         locks,
		notifier:      notifier,
		lockTTL:       lockTTL,
		maxConcurrent: maxConcurrent,
		logger:        logger.With(slog.String("component", "ingestor")),
	}
}

// RunCycle executes one full ingestion cycle over every active platform.
// It returns domain.ErrIngestionRunning when a cycle is already in flight,
// either in this process or (via the distributed lock) in another instance.
func (in *Ingestor) RunCycle(ctx context.Context) (CycleStats, error) {
	if !in.running.CompareAndSwap(false, true) {
		return CycleStats{}, domain.ErrIngestionRunning
	}
	defer in.running.Store(false)

	if in.locks != nil {
		unlock, err := in.locks.Acquire(ctx, ingestionLockKey, in.lockTTL)
		if err != nil {
			if err == domain.ErrLockHeld {
				return CycleStats{}, domain.ErrIngestionRunning
			}
			return CycleStats{}, fmt.Errorf("ingestor: acquire cycle lock: %w", err)
		}
		defer unlock()
	}

	platforms, err := in.platforms.ListActive(ctx)
	if err != nil {
		return CycleStats{}, fmt.Errorf("ingestor: list platforms: %w", err)
	}

	stats := CycleStats{Platforms: len(platforms)}
	results := make([]platformResult, len(platforms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.maxConcurrent)

	for i, p := range platforms {
		g.Go(func() error {
			ingested, skipped, err := in.ingestPlatform(gctx, p)
			results[i] = platformResult{ingested: ingested, skipped: skipped, err: err}
			// Per-platform errors are isolated: log here, never fail the group.
			if err != nil {
				in.logger.Error("platform ingestion failed",
					slog.String("platform_id", p.ID),
					slog.String("wallet", p.WalletAddress),
					slog.String("error", err.Error()),
				)
				if in.notifier != nil {
					_ = in.notifier.Notify(gctx, notify.EventIngestError,
						"Ingestion error",
						fmt.Sprintf("platform %s: %v", p.ID, err),
					)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("ingestor: cycle cancelled: %w", err)
	}

	for _, r := range results {
		stats.Ingested += r.ingested
		stats.Skipped += r.skipped
		if r.err != nil {
			stats.Failed++
		}
	}

	in.logger.Info("ingestion cycle complete",
		slog.Int("platforms", stats.Platforms),
		slog.Int64("ingested", stats.Ingested),
		slog.Int64("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

type platformResult struct {
	ingested int64
	skipped  int64
	err      error
}

// ingestPlatform processes one platform's batch: fetch, filter past the
// checkpoint, compute, persist, refresh summaries, then advance the
// checkpoint. Any error before the checkpoint advance leaves the checkpoint
// untouched, so the next cycle replays the batch and dedup makes the replay
// harmless.
func (in *Ingestor) ingestPlatform(ctx context.Context, p domain.Platform) (ingested, skipped int64, err error) {
	if p.WalletAddress == "" || !common.IsHexAddress(p.WalletAddress) {
		in.logger.Warn("skipping platform without resolvable wallet",
			slog.String("platform_id", p.ID),
			slog.String("wallet", p.WalletAddress),
		)
		return 0, 0, nil
	}

	checkpoint, err := in.checkpoints.Get(ctx, p.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("read checkpoint: %w", err)
	}

	fills, err := in.venue.UserFills(ctx, p.WalletAddress)
	if err != nil {
		// Transient venue errors are retried at the next scheduled cycle.
		return 0, 0, fmt.Errorf("fetch fills: %w", err)
	}

	var (
		rows   []domain.FeeTransaction
		maxTS  = checkpoint
		newNum int
	)
	for _, fill := range fills {
		if !fill.Timestamp.After(checkpoint) {
			continue
		}
		newNum++

		comp, err := in.policy.Compute(fill)
		if err != nil {
			// An inconsistent row must never reach the ledger; downstream
			// aggregation trusts it unconditionally.
			in.logger.Error("fee computation rejected fill",
				slog.String("platform_id", p.ID),
				slog.String("trade_id", fill.TradeID),
				slog.String("error", err.Error()),
			)
			if in.notifier != nil {
				_ = in.notifier.Notify(ctx, notify.EventSplitViolation,
					"Fee split violation",
					fmt.Sprintf("platform %s, trade %s: %v", p.ID, fill.TradeID, err),
				)
			}
			continue
		}

		rows = append(rows, domain.FeeTransaction{
			PlatformID:     p.ID,
			TradeID:        fill.TradeID,
			TradeType:      comp.TradeType,
			TradeVolume:    comp.TradeVolume,
			FeeRate:        comp.FeeRate,
			TotalFee:       comp.TotalFee,
			PlatformShare:  comp.PlatformShare,
			LiquidlabShare: comp.LiquidlabShare,
			Status:         domain.FeeTxPending,
			CreatedAt:      fill.Timestamp,
		})
		if fill.Timestamp.After(maxTS) {
			maxTS = fill.Timestamp
		}
	}

	if len(rows) == 0 {
		return 0, 0, nil
	}

	inserted, err := in.ledger.InsertBatch(ctx, rows)
	if err != nil {
		return 0, 0, fmt.Errorf("persist ledger rows: %w", err)
	}
	skipped = int64(len(rows)) - inserted

	// Summaries refresh inside the batch path so reads are never more than
	// one cycle stale.
	if err := in.aggregator.RecomputeAll(ctx, p.ID); err != nil {
		return inserted, skipped, fmt.Errorf("refresh summaries: %w", err)
	}

	// Ledger rows are durable; only now may the checkpoint move.
	if err := in.checkpoints.Advance(ctx, p.ID, maxTS); err != nil {
		return inserted, skipped, fmt.Errorf("advance checkpoint: %w", err)
	}

	in.logger.Info("platform batch ingested",
		slog.String("platform_id", p.ID),
		slog.Int("new_fills", newNum),
		slog.Int64("inserted", inserted),
		slog.Int64("dedup_skipped", skipped),
		slog.Time("checkpoint", maxTS),
	)
	return inserted, skipped, nil
}

// IngestLive feeds WebSocket-streamed fills for one platform through the same
// compute-and-dedup path as polled batches. The checkpoint is not advanced
// here: only a polled batch proves the poll path has covered a timestamp, so
// live fills are always re-covered (and deduplicated) by the next poll.
func (in *Ingestor) IngestLive(ctx context.Context, platformID string, fillBatch []domain.Fill) error {
	var rows []domain.FeeTransaction
	for _, fill := range fillBatch {
		comp, err := in.policy.Compute(fill)
		if err != nil {
			in.logger.Error("fee computation rejected live fill",
				slog.String("platform_id", platformID),
				slog.String("trade_id", fill.TradeID),
				slog.String("error", err.Error()),
			)
			continue
		}
		rows = append(rows, domain.FeeTransaction{
			PlatformID:     platformID,
			TradeID:        fill.TradeID,
			TradeType:      comp.TradeType,
			TradeVolume:    comp.TradeVolume,
			FeeRate:        comp.FeeRate,
			TotalFee:       comp.TotalFee,
			PlatformShare:  comp.PlatformShare,
			LiquidlabShare: comp.LiquidlabShare,
			Status:         domain.FeeTxPending,
			CreatedAt:      fill.Timestamp,
		})
	}

	if len(rows) == 0 {
		return nil
	}

	inserted, err := in.ledger.InsertBatch(ctx, rows)
	if err != nil {
		return fmt.Errorf("ingestor: persist live fills: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	if err := in.aggregator.RecomputeAll(ctx, platformID); err != nil {
		return fmt.Errorf("ingestor: refresh summaries after live fills: %w", err)
	}

	in.logger.Info("live fills ingested",
		slog.String("platform_id", platformID),
		slog.Int64("inserted", inserted),
	)
	return nil
}
