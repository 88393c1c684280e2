package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
	"github.com/teejy22/liquidlab-revenue/internal/notify"
)

// payoutCurrency is the settlement currency for platform earnings.
const payoutCurrency = "USDC"

// payoutLockKey guards the payout cycle across service instances.
const payoutLockKey = "payout:cycle"

// SummaryReader is the slice of the summary store the preparer needs.
type SummaryReader interface {
	Get(ctx context.Context, platformID string, period domain.Period, startDate time.Time) (domain.RevenueSummary, error)
}

// Notifier surfaces payout outcomes to operators.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// PayoutPreparer decides what each platform is owed for the current
// settlement month and hands the amount to the external executor. It records
// outcomes but never retries a specific submission: a failed record stays
// failed, and the next cycle computes the still-outstanding amount fresh.
type PayoutPreparer struct {
	platforms PlatformLister
	summaries SummaryReader
	payouts   domain.PayoutStore
	executor  domain.PayoutExecutor
	notifier  Notifier
	locks     domain.LockManager

	// minPayout is the threshold below which no payout record is created.
	minPayout decimal.Decimal

	// lockTTL bounds how long a crashed instance can hold the cycle lock.
	lockTTL time.Duration

	// running is the in-process half of the re-entrancy guard; overlapping
	// triggers are skipped, never queued.
	running atomic.Bool

	now    func() time.Time
	logger *slog.Logger
}

// NewPayoutPreparer creates a PayoutPreparer. A non-positive lockTTL falls
// back to 10 minutes.
func NewPayoutPreparer(
	platforms PlatformLister,
	summaries SummaryReader,
	payouts domain.PayoutStore,
	executor domain.PayoutExecutor,
	notifier Notifier,
	locks domain.LockManager,
	minPayout decimal.Decimal,
	lockTTL time.Duration,
	logger *slog.Logger,
) *PayoutPreparer {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &PayoutPreparer{
		platforms: platforms,
		summaries: summaries,
		payouts:   payouts,
		executor:  executor,
		notifier:  notifier,
		locks:     locks,
		minPayout: minPayout,
		lockTTL:   lockTTL,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "payout_preparer")),
	}
}

// PendingAmount computes what a platform is currently owed for the
// settlement window containing now: aggregated monthly earnings minus every
// non-failed payout already recorded for the same window.
func (pp *PayoutPreparer) PendingAmount(ctx context.Context, platformID string) (domain.PendingPayout, error) {
	periodStart, periodEnd := domain.MonthWindow(pp.now())

	pending := domain.PendingPayout{
		PlatformID:  platformID,
		Amount:      decimal.Zero,
		Currency:    payoutCurrency,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}

	summary, err := pp.summaries.Get(ctx, platformID, domain.PeriodMonthly, periodStart)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return pending, nil
		}
		return pending, fmt.Errorf("payout: read monthly summary for %s: %w", platformID, err)
	}

	paid, err := pp.payouts.SumNonFailed(ctx, platformID, periodStart, periodEnd)
	if err != nil {
		return pending, fmt.Errorf("payout: sum recorded payouts for %s: %w", platformID, err)
	}

	amount := summary.PlatformEarnings.Sub(paid)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	pending.Amount = amount
	return pending, nil
}

// RunCycle prepares and executes payouts for every active platform. Failures
// are isolated per platform. It returns domain.ErrPayoutRunning when a cycle
// is already in flight, either in this process or (via the distributed lock)
// in another instance, so the cron job and the manual trigger can never
// reconcile the same window twice.
func (pp *PayoutPreparer) RunCycle(ctx context.Context) error {
	if !pp.running.CompareAndSwap(false, true) {
		return domain.ErrPayoutRunning
	}
	defer pp.running.Store(false)

	if pp.locks != nil {
		unlock, err := pp.locks.Acquire(ctx, payoutLockKey, pp.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return domain.ErrPayoutRunning
			}
			return fmt.Errorf("payout: acquire cycle lock: %w", err)
		}
		defer unlock()
	}

	platforms, err := pp.platforms.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("payout: list platforms: %w", err)
	}

	for _, p := range platforms {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("payout: cycle cancelled: %w", err)
		}
		if err := pp.PreparePlatform(ctx, p); err != nil {
			pp.logger.Error("payout preparation failed",
				slog.String("platform_id", p.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// PreparePlatform runs the payout state machine for one platform:
// pending -> processing -> completed/failed.
func (pp *PayoutPreparer) PreparePlatform(ctx context.Context, p domain.Platform) error {
	pending, err := pp.PendingAmount(ctx, p.ID)
	if err != nil {
		return err
	}

	if pending.Amount.LessThan(pp.minPayout) {
		pp.logger.Debug("pending amount below threshold",
			slog.String("platform_id", p.ID),
			slog.String("amount", pending.Amount.String()),
			slog.String("threshold", pp.minPayout.String()),
		)
		return nil
	}

	if !common.IsHexAddress(p.WalletAddress) {
		return fmt.Errorf("payout: %w: platform %s", domain.ErrNoWallet, p.ID)
	}

	record := domain.PayoutRecord{
		ID:               uuid.New().String(),
		PlatformID:       p.ID,
		UserID:           p.OwnerUserID,
		Amount:           pending.Amount,
		Currency:         pending.Currency,
		Status:           domain.PayoutPending,
		PeriodStart:      pending.PeriodStart,
		PeriodEnd:        pending.PeriodEnd,
		RecipientAddress: p.WalletAddress,
	}
	if err := pp.payouts.Create(ctx, record); err != nil {
		// A live record for this window already exists; another cycle got
		// there first and owns the submission.
		if errors.Is(err, domain.ErrAlreadyExists) {
			pp.logger.Info("payout window already claimed",
				slog.String("platform_id", p.ID),
				slog.Time("period_start", record.PeriodStart),
			)
			return nil
		}
		return fmt.Errorf("payout: create record for %s: %w", p.ID, err)
	}

	if err := pp.payouts.SetStatus(ctx, record.ID, domain.PayoutProcessing, "", ""); err != nil {
		return fmt.Errorf("payout: mark processing %s: %w", record.ID, err)
	}

	result, err := pp.executor.Execute(ctx, domain.PayoutRequest{
		PlatformID:       p.ID,
		Amount:           record.Amount,
		Currency:         record.Currency,
		RecipientAddress: record.RecipientAddress,
	})
	if err != nil || result.Err != "" {
		reason := result.Err
		if err != nil {
			reason = err.Error()
		}
		if serr := pp.payouts.SetStatus(ctx, record.ID, domain.PayoutFailed, "", reason); serr != nil {
			return fmt.Errorf("payout: record failure for %s: %w", record.ID, serr)
		}
		pp.notifyFailure(ctx, p.ID, record.Amount, reason)
		pp.logger.Error("payout execution failed",
			slog.String("platform_id", p.ID),
			slog.String("payout_id", record.ID),
			slog.String("amount", record.Amount.String()),
			slog.String("reason", reason),
		)
		return nil
	}

	if err := pp.payouts.SetStatus(ctx, record.ID, domain.PayoutCompleted, result.TxHash, ""); err != nil {
		return fmt.Errorf("payout: record completion for %s: %w", record.ID, err)
	}

	pp.logger.Info("payout completed",
		slog.String("platform_id", p.ID),
		slog.String("payout_id", record.ID),
		slog.String("amount", record.Amount.String()),
		slog.String("tx_hash", result.TxHash),
	)
	return nil
}

func (pp *PayoutPreparer) notifyFailure(ctx context.Context, platformID string, amount decimal.Decimal, reason string) {
	if pp.notifier == nil {
		return
	}
	_ = pp.notifier.Notify(ctx, notify.EventPayoutFailed,
		"Payout failed",
		fmt.Sprintf("platform %s, amount %s %s: %s", platformID, amount, payoutCurrency, reason),
	)
}
