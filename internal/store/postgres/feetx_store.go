package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// FeeTxStore implements domain.FeeTransactionStore using PostgreSQL.
type FeeTxStore struct {
	pool *pgxpool.Pool
}

// NewFeeTxStore creates a new FeeTxStore backed by the given connection pool.
func NewFeeTxStore(pool *pgxpool.Pool) *FeeTxStore {
	return &FeeTxStore{pool: pool}
}

const feeTxSelectCols = `id, platform_id, trade_id, trade_type, trade_volume,
	fee_rate, total_fee, platform_share, liquidlab_share, status,
	created_at, claimed_at, distributed_at`

func scanFeeTxRows(rows pgx.Rows) ([]domain.FeeTransaction, error) {
	var txs []domain.FeeTransaction
	for rows.Next() {
		var t domain.FeeTransaction
		if err := rows.Scan(
			&t.ID, &t.PlatformID, &t.TradeID, &t.TradeType, &t.TradeVolume,
			&t.FeeRate, &t.TotalFee, &t.PlatformShare, &t.LiquidlabShare,
			&t.Status, &t.CreatedAt, &t.ClaimedAt, &t.DistributedAt,
		); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// InsertBatch inserts fee transactions using a pgx Batch. Rows whose
// (platform_id, trade_id) already exists are silently skipped via
// ON CONFLICT DO NOTHING, which is what makes ingestion replay safe. The
// return value is the number of rows actually written.
func (s *FeeTxStore) InsertBatch(ctx context.Context, txs []domain.FeeTransaction) (int64, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO fee_transactions (
			platform_id, trade_id, trade_type, trade_volume,
			fee_rate, total_fee, platform_share, liquidlab_share,
			status, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10
		) ON CONFLICT (platform_id, trade_id) DO NOTHING`

	for _, t := range txs {
		batch.Queue(query,
			t.PlatformID, t.TradeID, t.TradeType, t.TradeVolume,
			t.FeeRate, t.TotalFee, t.PlatformShare, t.LiquidlabShare,
			t.Status, t.CreatedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for i := range txs {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("postgres: insert fee tx batch item %d: %w", i, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// ListByPlatform returns fee transactions for a platform with optional
// status and date filtering, newest first.
func (s *FeeTxStore) ListByPlatform(ctx context.Context, platformID string, f domain.FeeTxFilter) ([]domain.FeeTransaction, error) {
	query := `SELECT ` + feeTxSelectCols + ` FROM fee_transactions WHERE platform_id = $1`
	args := []any{platformID}
	argIdx := 2

	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, f.Status)
		argIdx++
	}
	if f.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *f.StartDate)
		argIdx++
	}
	if f.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *f.EndDate)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
		argIdx++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, f.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fee txs: %w", err)
	}
	defer rows.Close()

	txs, err := scanFeeTxRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan fee txs: %w", err)
	}
	return txs, nil
}

// ListWindow returns every fee transaction for a platform with created_at in
// [start, end), oldest first.
func (s *FeeTxStore) ListWindow(ctx context.Context, platformID string, start, end time.Time) ([]domain.FeeTransaction, error) {
	query := `SELECT ` + feeTxSelectCols + ` FROM fee_transactions
		WHERE platform_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, platformID, start, end)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fee tx window: %w", err)
	}
	defer rows.Close()

	txs, err := scanFeeTxRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan fee tx window: %w", err)
	}
	return txs, nil
}

// SumWindow aggregates the ledger for a platform over [start, end). The
// aggregation runs entirely in SQL so summaries and CSV reports see the same
// arithmetic.
func (s *FeeTxStore) SumWindow(ctx context.Context, platformID string, start, end time.Time) (domain.LedgerTotals, error) {
	const query = `
		SELECT
			COALESCE(SUM(trade_volume), 0),
			COALESCE(SUM(total_fee), 0),
			COALESCE(SUM(platform_share), 0),
			COALESCE(SUM(liquidlab_share), 0),
			COUNT(*)
		FROM fee_transactions
		WHERE platform_id = $1 AND created_at >= $2 AND created_at < $3`

	var totals domain.LedgerTotals
	err := s.pool.QueryRow(ctx, query, platformID, start, end).Scan(
		&totals.TotalVolume,
		&totals.TotalFees,
		&totals.PlatformShare,
		&totals.LiquidlabShare,
		&totals.TradeCount,
	)
	if err != nil {
		return domain.LedgerTotals{}, fmt.Errorf("postgres: sum fee tx window: %w", err)
	}
	return totals, nil
}

// statusRank orders the fee transaction lifecycle for forward-only checks.
var statusRank = map[domain.FeeTxStatus]int{
	domain.FeeTxPending:     0,
	domain.FeeTxClaimed:     1,
	domain.FeeTxDistributed: 2,
	domain.FeeTxFailed:      3,
}

// SetStatus advances a row's status and stamps the matching timestamp.
// Backwards transitions return domain.ErrInvalidStatus unless force is set.
func (s *FeeTxStore) SetStatus(ctx context.Context, id int64, status domain.FeeTxStatus, force bool) error {
	if !domain.ValidFeeTxStatus(status) {
		return fmt.Errorf("postgres: %w: unknown status %q", domain.ErrInvalidStatus, status)
	}

	if !force {
		var current domain.FeeTxStatus
		err := s.pool.QueryRow(ctx,
			"SELECT status FROM fee_transactions WHERE id = $1", id).Scan(&current)
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrNotFound
			}
			return fmt.Errorf("postgres: read fee tx status: %w", err)
		}
		if statusRank[status] < statusRank[current] {
			return fmt.Errorf("postgres: %w: %s -> %s", domain.ErrInvalidStatus, current, status)
		}
	}

	query := `UPDATE fee_transactions SET status = $2`
	switch status {
	case domain.FeeTxClaimed:
		query += `, claimed_at = NOW()`
	case domain.FeeTxDistributed:
		query += `, distributed_at = NOW()`
	}
	query += ` WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("postgres: set fee tx status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.FeeTransactionStore = (*FeeTxStore)(nil)
