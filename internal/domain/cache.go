package domain

import (
	"context"
	"time"
)

// LockManager provides distributed locking. The ingestion loop uses it as the
// cross-instance half of its re-entrancy guard.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter applies a sliding-window request limit per key. The API server
// uses it per client IP.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RevenueCache provides short-lived caching for the all-platform revenue
// leaderboard, the one read-API query that scans every platform.
type RevenueCache interface {
	Set(ctx context.Context, revenues []PlatformRevenue) error
	Get(ctx context.Context) ([]PlatformRevenue, error)
	Invalidate(ctx context.Context) error
}
