package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// setupTestDB starts a throwaway PostgreSQL container, applies the embedded
// migrations, and returns a connected client. Cleanup runs via t.Cleanup.
func setupTestDB(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed store tests in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("revenue_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "container connection string")

	client, err := New(ctx, ClientConfig{DSN: dsn})
	require.NoError(t, err, "connect")
	require.NoError(t, client.RunMigrations(ctx), "migrate")

	t.Cleanup(func() {
		client.Close()
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})
	return client
}

func seedPlatform(t *testing.T, client *Client, id string) {
	t.Helper()
	store := NewPlatformStore(client.Pool())
	require.NoError(t, store.Create(context.Background(), domain.Platform{
		ID:            id,
		Name:          id,
		OwnerUserID:   "owner-" + id,
		WalletAddress: "0x1111111111111111111111111111111111111111",
		Active:        true,
	}))
}

func feeTxRow(platformID, tradeID string, fee, platformShare string, ts time.Time) domain.FeeTransaction {
	total := decimal.RequireFromString(fee)
	plat := decimal.RequireFromString(platformShare)
	return domain.FeeTransaction{
		PlatformID:     platformID,
		TradeID:        tradeID,
		TradeType:      domain.TradeTypePerp,
		TradeVolume:    decimal.RequireFromString("1000"),
		FeeRate:        decimal.RequireFromString("0.001"),
		TotalFee:       total,
		PlatformShare:  plat,
		LiquidlabShare: total.Sub(plat),
		Status:         domain.FeeTxPending,
		CreatedAt:      ts,
	}
}

func TestFeeTxStoreIntegration(t *testing.T) {
	client := setupTestDB(t)
	ctx := context.Background()
	seedPlatform(t, client, "p1")
	store := NewFeeTxStore(client.Pool())
	base := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

	t.Run("replayed batches deduplicate on trade id", func(t *testing.T) {
		first, err := store.InsertBatch(ctx, []domain.FeeTransaction{
			feeTxRow("p1", "t1", "1", "0.7", base),
			feeTxRow("p1", "t2", "1", "0.7", base.Add(time.Minute)),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), first)

		// The overlapping replay only lands the genuinely new row.
		second, err := store.InsertBatch(ctx, []domain.FeeTransaction{
			feeTxRow("p1", "t2", "1", "0.7", base.Add(time.Minute)),
			feeTxRow("p1", "t3", "1", "0.7", base.Add(2*time.Minute)),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), second)
	})

	t.Run("SumWindow is half-open over created_at", func(t *testing.T) {
		totals, err := store.SumWindow(ctx, "p1", base, base.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(2), totals.TradeCount)
		assert.True(t, totals.TotalFees.Equal(decimal.RequireFromString("2")))
		assert.True(t, totals.PlatformShare.Add(totals.LiquidlabShare).Equal(totals.TotalFees))
	})

	t.Run("split check constraint rejects inconsistent rows", func(t *testing.T) {
		bad := feeTxRow("p1", "t-bad", "1", "0.7", base.Add(3*time.Minute))
		bad.LiquidlabShare = decimal.RequireFromString("0.5")
		_, err := store.InsertBatch(ctx, []domain.FeeTransaction{bad})
		assert.Error(t, err)
	})
}

func TestCheckpointStoreIntegration(t *testing.T) {
	client := setupTestDB(t)
	ctx := context.Background()
	seedPlatform(t, client, "p1")
	store := NewCheckpointStore(client.Pool())

	t.Run("missing checkpoint reads as zero time", func(t *testing.T) {
		ts, err := store.Get(ctx, "unseen")
		require.NoError(t, err)
		assert.True(t, ts.IsZero())
	})

	t.Run("advance is monotonic", func(t *testing.T) {
		later := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
		earlier := later.Add(-time.Hour)

		require.NoError(t, store.Advance(ctx, "p1", later))
		require.NoError(t, store.Advance(ctx, "p1", earlier))

		got, err := store.Get(ctx, "p1")
		require.NoError(t, err)
		assert.True(t, got.Equal(later))
	})
}

func TestPayoutStoreIntegration(t *testing.T) {
	client := setupTestDB(t)
	ctx := context.Background()
	seedPlatform(t, client, "p1")
	store := NewPayoutStore(client.Pool())

	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	record := func(id string, status domain.PayoutStatus) domain.PayoutRecord {
		return domain.PayoutRecord{
			ID:               id,
			PlatformID:       "p1",
			UserID:           "u1",
			Amount:           decimal.RequireFromString("100"),
			Currency:         "USDC",
			Status:           status,
			PeriodStart:      start,
			PeriodEnd:        end,
			RecipientAddress: "0x1111111111111111111111111111111111111111",
		}
	}

	t.Run("one live record per settlement window", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, record("first", domain.PayoutPending)))

		err := store.Create(ctx, record("second", domain.PayoutPending))
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("failed records free the window", func(t *testing.T) {
		require.NoError(t, store.SetStatus(ctx, "first", domain.PayoutFailed, "", "executor timeout"))

		require.NoError(t, store.Create(ctx, record("fresh", domain.PayoutPending)))

		paid, err := store.SumNonFailed(ctx, "p1", start, end)
		require.NoError(t, err)
		assert.True(t, paid.Equal(decimal.RequireFromString("100")))
	})
}
