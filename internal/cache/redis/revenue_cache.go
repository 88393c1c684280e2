package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

const (
	leaderboardKey = "revenue:leaderboard"

	// leaderboardTTL bounds staleness between aggregation runs.
	leaderboardTTL = 5 * time.Minute
)

// RevenueCache implements domain.RevenueCache using a single Redis string key
// holding the JSON-encoded leaderboard with a short TTL.
type RevenueCache struct {
	rdb *redis.Client
}

// NewRevenueCache creates a RevenueCache backed by the given Client.
func NewRevenueCache(c *Client) *RevenueCache {
	return &RevenueCache{rdb: c.Underlying()}
}

// Set stores the leaderboard, replacing any previous snapshot.
func (rc *RevenueCache) Set(ctx context.Context, revenues []domain.PlatformRevenue) error {
	data, err := json.Marshal(revenues)
	if err != nil {
		return fmt.Errorf("redis: marshal leaderboard: %w", err)
	}
	if err := rc.rdb.Set(ctx, leaderboardKey, data, leaderboardTTL).Err(); err != nil {
		return fmt.Errorf("redis: set leaderboard: %w", err)
	}
	return nil
}

// Get retrieves the cached leaderboard. It returns domain.ErrNotFound when the
// key is missing or expired.
func (rc *RevenueCache) Get(ctx context.Context) ([]domain.PlatformRevenue, error) {
	data, err := rc.rdb.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get leaderboard: %w", err)
	}

	var revenues []domain.PlatformRevenue
	if err := json.Unmarshal(data, &revenues); err != nil {
		return nil, fmt.Errorf("redis: unmarshal leaderboard: %w", err)
	}
	return revenues, nil
}

// Invalidate drops the cached leaderboard so the next read recomputes it.
func (rc *RevenueCache) Invalidate(ctx context.Context) error {
	if err := rc.rdb.Del(ctx, leaderboardKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate leaderboard: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.RevenueCache = (*RevenueCache)(nil)
