package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// CheckpointStore implements domain.CheckpointStore using PostgreSQL.
type CheckpointStore struct {
	pool *pgxpool.Pool
}

// NewCheckpointStore creates a new CheckpointStore backed by the given pool.
func NewCheckpointStore(pool *pgxpool.Pool) *CheckpointStore {
	return &CheckpointStore{pool: pool}
}

// Get returns a platform's checkpoint, or the zero time when no fills have
// ever been ingested for it.
func (s *CheckpointStore) Get(ctx context.Context, platformID string) (time.Time, error) {
	var ts time.Time
	err := s.pool.QueryRow(ctx,
		"SELECT last_fill_time FROM ingestion_checkpoints WHERE platform_id = $1",
		platformID,
	).Scan(&ts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("postgres: get checkpoint %s: %w", platformID, err)
	}
	return ts, nil
}

// Advance raises the checkpoint to ts. GREATEST in the upsert makes the
// operation monotonic even under concurrent writers: the checkpoint can
// never move backwards.
func (s *CheckpointStore) Advance(ctx context.Context, platformID string, ts time.Time) error {
	const query = `
		INSERT INTO ingestion_checkpoints (platform_id, last_fill_time, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (platform_id) DO UPDATE SET
			last_fill_time = GREATEST(ingestion_checkpoints.last_fill_time, EXCLUDED.last_fill_time),
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query, platformID, ts)
	if err != nil {
		return fmt.Errorf("postgres: advance checkpoint %s: %w", platformID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CheckpointStore = (*CheckpointStore)(nil)
