package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// SummaryStore implements domain.RevenueSummaryStore using PostgreSQL.
type SummaryStore struct {
	pool *pgxpool.Pool
}

// NewSummaryStore creates a new SummaryStore backed by the given pool.
func NewSummaryStore(pool *pgxpool.Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

const summarySelectCols = `platform_id, period, start_date, total_volume,
	total_fees, platform_earnings, liquidlab_earnings, trade_count, last_updated`

func scanSummary(row pgx.Row) (domain.RevenueSummary, error) {
	var s domain.RevenueSummary
	err := row.Scan(
		&s.PlatformID, &s.Period, &s.StartDate, &s.TotalVolume,
		&s.TotalFees, &s.PlatformEarnings, &s.LiquidlabEarnings,
		&s.TradeCount, &s.LastUpdated,
	)
	return s, err
}

// Upsert writes a summary row keyed by (platform_id, period, start_date).
// The keyed upsert is the concurrency control: concurrent recomputations of
// the same window converge on the last writer with no application locks.
func (s *SummaryStore) Upsert(ctx context.Context, sum domain.RevenueSummary) error {
	const query = `
		INSERT INTO revenue_summaries (
			platform_id, period, start_date, total_volume, total_fees,
			platform_earnings, liquidlab_earnings, trade_count, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (platform_id, period, start_date) DO UPDATE SET
			total_volume = EXCLUDED.total_volume,
			total_fees = EXCLUDED.total_fees,
			platform_earnings = EXCLUDED.platform_earnings,
			liquidlab_earnings = EXCLUDED.liquidlab_earnings,
			trade_count = EXCLUDED.trade_count,
			last_updated = EXCLUDED.last_updated`

	_, err := s.pool.Exec(ctx, query,
		sum.PlatformID, sum.Period, sum.StartDate, sum.TotalVolume,
		sum.TotalFees, sum.PlatformEarnings, sum.LiquidlabEarnings,
		sum.TradeCount, sum.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert summary %s/%s: %w", sum.PlatformID, sum.Period, err)
	}
	return nil
}

// Get returns the summary row for an exact (platform, period, start_date)
// key, or domain.ErrNotFound.
func (s *SummaryStore) Get(ctx context.Context, platformID string, period domain.Period, startDate time.Time) (domain.RevenueSummary, error) {
	query := `SELECT ` + summarySelectCols + ` FROM revenue_summaries
		WHERE platform_id = $1 AND period = $2 AND start_date = $3`

	sum, err := scanSummary(s.pool.QueryRow(ctx, query, platformID, period, startDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RevenueSummary{}, domain.ErrNotFound
		}
		return domain.RevenueSummary{}, fmt.Errorf("postgres: get summary: %w", err)
	}
	return sum, nil
}

// Latest returns the most recent summary row for a platform and period, or
// domain.ErrNotFound.
func (s *SummaryStore) Latest(ctx context.Context, platformID string, period domain.Period) (domain.RevenueSummary, error) {
	query := `SELECT ` + summarySelectCols + ` FROM revenue_summaries
		WHERE platform_id = $1 AND period = $2
		ORDER BY start_date DESC LIMIT 1`

	sum, err := scanSummary(s.pool.QueryRow(ctx, query, platformID, period))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RevenueSummary{}, domain.ErrNotFound
		}
		return domain.RevenueSummary{}, fmt.Errorf("postgres: latest summary: %w", err)
	}
	return sum, nil
}

// ListPlatformRevenues returns the all-time revenue row per platform joined
// with the platform name, filtered by minimum earnings and sorted descending.
func (s *SummaryStore) ListPlatformRevenues(ctx context.Context, minRevenue decimal.Decimal) ([]domain.PlatformRevenue, error) {
	const query = `
		SELECT rs.platform_id, p.name, rs.total_volume, rs.platform_earnings,
			rs.trade_count, rs.last_updated
		FROM revenue_summaries rs
		JOIN platforms p ON p.id = rs.platform_id
		WHERE rs.period = $1 AND rs.platform_earnings >= $2
		ORDER BY rs.platform_earnings DESC`

	rows, err := s.pool.Query(ctx, query, domain.PeriodAllTime, minRevenue)
	if err != nil {
		return nil, fmt.Errorf("postgres: list platform revenues: %w", err)
	}
	defer rows.Close()

	var revenues []domain.PlatformRevenue
	for rows.Next() {
		var r domain.PlatformRevenue
		if err := rows.Scan(
			&r.PlatformID, &r.PlatformName, &r.TotalVolume,
			&r.PlatformEarnings, &r.TradeCount, &r.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan platform revenue: %w", err)
		}
		revenues = append(revenues, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate platform revenues: %w", err)
	}
	return revenues, nil
}

// Compile-time interface check.
var _ domain.RevenueSummaryStore = (*SummaryStore)(nil)
