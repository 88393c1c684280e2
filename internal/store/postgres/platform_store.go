package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// PlatformStore implements domain.PlatformStore using PostgreSQL.
type PlatformStore struct {
	pool *pgxpool.Pool
}

// NewPlatformStore creates a new PlatformStore backed by the given pool.
func NewPlatformStore(pool *pgxpool.Pool) *PlatformStore {
	return &PlatformStore{pool: pool}
}

const platformSelectCols = `id, name, owner_user_id, wallet_address, active, created_at`

// Create registers a platform. A duplicate ID returns
// domain.ErrAlreadyExists.
func (s *PlatformStore) Create(ctx context.Context, p domain.Platform) error {
	const query = `
		INSERT INTO platforms (id, name, owner_user_id, wallet_address, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query, p.ID, p.Name, p.OwnerUserID, p.WalletAddress, p.Active)
	if err != nil {
		return fmt.Errorf("postgres: create platform %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// GetByID returns a platform, or domain.ErrNotFound.
func (s *PlatformStore) GetByID(ctx context.Context, id string) (domain.Platform, error) {
	query := `SELECT ` + platformSelectCols + ` FROM platforms WHERE id = $1`

	var p domain.Platform
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.OwnerUserID, &p.WalletAddress, &p.Active, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Platform{}, domain.ErrNotFound
		}
		return domain.Platform{}, fmt.Errorf("postgres: get platform %s: %w", id, err)
	}
	return p, nil
}

// ListActive returns every active platform.
func (s *PlatformStore) ListActive(ctx context.Context) ([]domain.Platform, error) {
	query := `SELECT ` + platformSelectCols + ` FROM platforms WHERE active ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active platforms: %w", err)
	}
	defer rows.Close()

	var platforms []domain.Platform
	for rows.Next() {
		var p domain.Platform
		if err := rows.Scan(
			&p.ID, &p.Name, &p.OwnerUserID, &p.WalletAddress, &p.Active, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan platform: %w", err)
		}
		platforms = append(platforms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate platforms: %w", err)
	}
	return platforms, nil
}

// SetActive toggles a platform's active flag.
func (s *PlatformStore) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE platforms SET active = $2 WHERE id = $1", id, active)
	if err != nil {
		return fmt.Errorf("postgres: set platform active %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.PlatformStore = (*PlatformStore)(nil)
