package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	s3blob "github.com/teejy22/liquidlab-revenue/internal/blob/s3"
	"github.com/teejy22/liquidlab-revenue/internal/cache/redis"
	"github.com/teejy22/liquidlab-revenue/internal/config"
	"github.com/teejy22/liquidlab-revenue/internal/domain"
	"github.com/teejy22/liquidlab-revenue/internal/fees"
	"github.com/teejy22/liquidlab-revenue/internal/notify"
	"github.com/teejy22/liquidlab-revenue/internal/payout"
	"github.com/teejy22/liquidlab-revenue/internal/platform/hyperliquid"
	"github.com/teejy22/liquidlab-revenue/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	PlatformStore   domain.PlatformStore
	LedgerStore     domain.FeeTransactionStore
	SummaryStore    domain.RevenueSummaryStore
	PayoutStore     domain.PayoutStore
	CheckpointStore domain.CheckpointStore

	// Caches
	LockManager  domain.LockManager
	RateLimiter  domain.RateLimiter
	RevenueCache domain.RevenueCache

	// Blob storage
	BlobWriter *s3blob.Writer

	// Venue
	Venue *hyperliquid.Client

	// Fee policy and payout execution
	Policy         *fees.PolicyTable
	PayoutExecutor domain.PayoutExecutor
	MinPayout      decimal.Decimal

	// Notifications
	Notifier *notify.Notifier

	// Connectivity checks for the health endpoint.
	PostgresPing func(ctx context.Context) error
	RedisPing    func(ctx context.Context) error
}

// needsS3 returns true for modes that export reports to object storage.
func needsS3(mode string) bool {
	switch mode {
	case "pipeline", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.PlatformStore = postgres.NewPlatformStore(pool)
	deps.LedgerStore = postgres.NewFeeTxStore(pool)
	deps.SummaryStore = postgres.NewSummaryStore(pool)
	deps.PayoutStore = postgres.NewPayoutStore(pool)
	deps.CheckpointStore = postgres.NewCheckpointStore(pool)
	deps.PostgresPing = pgClient.Ping

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.LockManager = redis.NewLockManager(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.RevenueCache = redis.NewRevenueCache(redisClient)
	deps.RedisPing = redisClient.Ping

	// --- S3 blob storage (only for modes that export reports) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Venue ---
	deps.Venue = hyperliquid.NewClient(cfg.Hyperliquid.APIURL)

	// --- Fee policy ---
	policy, err := fees.NewPolicyTable(fees.PolicyConfig{
		SpotFeeRate:          cfg.Fees.SpotFeeRate,
		PerpFeeRate:          cfg.Fees.PerpFeeRate,
		TradingPlatformRatio: cfg.Fees.TradingPlatformRatio,
		OnrampPlatformRatio:  cfg.Fees.OnrampPlatformRatio,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: fee policy: %w", err)
	}
	deps.Policy = policy

	// --- Payout executor ---
	if cfg.Payout.ExecutorURL != "" {
		deps.PayoutExecutor = payout.NewHTTPExecutor(cfg.Payout.ExecutorURL, cfg.Payout.ExecutorKey)
	} else {
		deps.PayoutExecutor = payout.NewRecordOnlyExecutor()
	}

	minPayout, err := decimal.NewFromString(cfg.Payout.MinPayout)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: payout min_payout: %w", err)
	}
	deps.MinPayout = minPayout

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
