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

// PayoutStore implements domain.PayoutStore using PostgreSQL.
type PayoutStore struct {
	pool *pgxpool.Pool
}

// NewPayoutStore creates a new PayoutStore backed by the given pool.
func NewPayoutStore(pool *pgxpool.Pool) *PayoutStore {
	return &PayoutStore{pool: pool}
}

const payoutSelectCols = `id, platform_id, user_id, amount, currency, status,
	tx_hash, failure_reason, period_start, period_end, recipient_address,
	created_at, updated_at`

func scanPayout(row pgx.Row) (domain.PayoutRecord, error) {
	var p domain.PayoutRecord
	err := row.Scan(
		&p.ID, &p.PlatformID, &p.UserID, &p.Amount, &p.Currency, &p.Status,
		&p.TxHash, &p.FailureReason, &p.PeriodStart, &p.PeriodEnd,
		&p.RecipientAddress, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// Create inserts a payout record. The partial unique index on
// (platform_id, period_start, period_end) admits one non-failed record per
// settlement window; a second live record for the same window returns
// domain.ErrAlreadyExists so concurrent cycles cannot both submit it.
func (s *PayoutStore) Create(ctx context.Context, p domain.PayoutRecord) error {
	const query = `
		INSERT INTO payouts (
			id, platform_id, user_id, amount, currency, status,
			tx_hash, failure_reason, period_start, period_end, recipient_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (platform_id, period_start, period_end) WHERE status <> 'failed'
		DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.PlatformID, p.UserID, p.Amount, p.Currency, p.Status,
		p.TxHash, p.FailureReason, p.PeriodStart, p.PeriodEnd, p.RecipientAddress,
	)
	if err != nil {
		return fmt.Errorf("postgres: create payout %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// GetByID returns a payout record, or domain.ErrNotFound.
func (s *PayoutStore) GetByID(ctx context.Context, id string) (domain.PayoutRecord, error) {
	query := `SELECT ` + payoutSelectCols + ` FROM payouts WHERE id = $1`

	p, err := scanPayout(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PayoutRecord{}, domain.ErrNotFound
		}
		return domain.PayoutRecord{}, fmt.Errorf("postgres: get payout %s: %w", id, err)
	}
	return p, nil
}

// ListByPlatform returns a platform's payout records, newest first.
func (s *PayoutStore) ListByPlatform(ctx context.Context, platformID string, limit, offset int) ([]domain.PayoutRecord, error) {
	query := `SELECT ` + payoutSelectCols + ` FROM payouts
		WHERE platform_id = $1 ORDER BY created_at DESC`
	args := []any{platformID}
	argIdx := 2

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
		argIdx++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []domain.PayoutRecord
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan payout: %w", err)
		}
		payouts = append(payouts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate payouts: %w", err)
	}
	return payouts, nil
}

// SumNonFailed totals non-failed payouts for a settlement window.
func (s *PayoutStore) SumNonFailed(ctx context.Context, platformID string, periodStart, periodEnd time.Time) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0) FROM payouts
		WHERE platform_id = $1 AND period_start = $2 AND period_end = $3
			AND status <> $4`

	var sum decimal.Decimal
	err := s.pool.QueryRow(ctx, query, platformID, periodStart, periodEnd, domain.PayoutFailed).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: sum payouts for %s: %w", platformID, err)
	}
	return sum, nil
}

// SetStatus transitions a payout record, recording tx hash or failure reason
// when provided.
func (s *PayoutStore) SetStatus(ctx context.Context, id string, status domain.PayoutStatus, txHash, failureReason string) error {
	const query = `
		UPDATE payouts SET
			status = $2,
			tx_hash = CASE WHEN $3 <> '' THEN $3 ELSE tx_hash END,
			failure_reason = CASE WHEN $4 <> '' THEN $4 ELSE failure_reason END,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, status, txHash, failureReason)
	if err != nil {
		return fmt.Errorf("postgres: set payout status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.PayoutStore = (*PayoutStore)(nil)
