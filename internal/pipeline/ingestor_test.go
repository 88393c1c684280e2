package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
	"github.com/teejy22/liquidlab-revenue/internal/fees"
)

func testPolicy(t *testing.T) *fees.PolicyTable {
	t.Helper()
	table, err := fees.NewPolicyTable(fees.PolicyConfig{
		SpotFeeRate:          "0.0004",
		PerpFeeRate:          "0.00025",
		TradingPlatformRatio: "0.7",
		OnrampPlatformRatio:  "0.5",
	})
	require.NoError(t, err)
	return table
}

func perpFill(tradeID string, ts time.Time) domain.Fill {
	return domain.Fill{
		TradeID:   tradeID,
		Coin:      "ETH",
		Side:      "B",
		Size:      decimal.RequireFromString("1"),
		Price:     decimal.RequireFromString("1000"),
		Timestamp: ts,
	}
}

type ingestFixture struct {
	ingestor    *Ingestor
	platforms   *fakePlatforms
	venue       *fakeVenue
	ledger      *fakeLedger
	checkpoints *fakeCheckpoints
	summaries   *fakeSummaries
}

func newIngestFixture(t *testing.T, platforms []domain.Platform) *ingestFixture {
	t.Helper()
	f := &ingestFixture{
		platforms:   &fakePlatforms{platforms: platforms},
		venue:       &fakeVenue{fills: map[string][]domain.Fill{}, errs: map[string]error{}},
		ledger:      newFakeLedger(),
		checkpoints: newFakeCheckpoints(),
		summaries:   newFakeSummaries(),
	}
	logger := discardLogger()
	agg := NewAggregator(f.ledger, f.summaries, nil, logger)
	f.ingestor = NewIngestor(f.platforms, f.venue, f.ledger, f.checkpoints, agg, testPolicy(t), nil, nil, 0, 2, logger)
	return f
}

func TestIngestorRunCycle(t *testing.T) {
	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	platform := domain.Platform{ID: "plat-1", Name: "One", WalletAddress: walletA, Active: true}

	t.Run("ingests new fills and advances checkpoint", func(t *testing.T) {
		f := newIngestFixture(t, []domain.Platform{platform})
		f.venue.fills[walletA] = []domain.Fill{
			perpFill("a", base),
			perpFill("b", base.Add(time.Minute)),
		}

		stats, err := f.ingestor.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Ingested)
		assert.Equal(t, int64(0), stats.Skipped)
		assert.Equal(t, 0, stats.Failed)

		mark, err := f.checkpoints.Get(context.Background(), "plat-1")
		require.NoError(t, err)
		assert.True(t, mark.Equal(base.Add(time.Minute)))
	})

	t.Run("overlapping batches dedup by trade id", func(t *testing.T) {
		f := newIngestFixture(t, []domain.Platform{platform})
		f.venue.fills[walletA] = []domain.Fill{
			perpFill("a", base),
			perpFill("b", base.Add(time.Minute)),
		}
		_, err := f.ingestor.RunCycle(context.Background())
		require.NoError(t, err)

		// Second batch overlaps on "b". Its timestamp is past the checkpoint
		// only for "c", so "b" is filtered by the checkpoint; feed "b" again
		// with a later timestamp to exercise ledger-level dedup too.
		f.venue.fills[walletA] = []domain.Fill{
			perpFill("b", base.Add(2*time.Minute)),
			perpFill("c", base.Add(3*time.Minute)),
		}
		stats, err := f.ingestor.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Ingested)
		assert.Equal(t, int64(1), stats.Skipped)

		rows, err := f.ledger.ListByPlatform(context.Background(), "plat-1", domain.FeeTxFilter{})
		require.NoError(t, err)
		ids := make(map[string]bool)
		for _, r := range rows {
			ids[r.TradeID] = true
		}
		assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, ids)
	})

	t.Run("fills at or before checkpoint are not refetched", func(t *testing.T) {
		f := newIngestFixture(t, []domain.Platform{platform})
		f.venue.fills[walletA] = []domain.Fill{perpFill("a", base)}
		_, err := f.ingestor.RunCycle(context.Background())
		require.NoError(t, err)

		stats, err := f.ingestor.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.Ingested)
	})

	t.Run("one platform failure does not block others", func(t *testing.T) {
		other := domain.Platform{ID: "plat-2", Name: "Two", WalletAddress: walletB, Active: true}
		f := newIngestFixture(t, []domain.Platform{platform, other})
		f.venue.errs[walletA] = errors.New("venue 500")
		f.venue.fills[walletB] = []domain.Fill{perpFill("z", base)}

		stats, err := f.ingestor.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, int64(1), stats.Ingested)

		// The failed platform's checkpoint must not have moved.
		mark, err := f.checkpoints.Get(context.Background(), "plat-1")
		require.NoError(t, err)
		assert.True(t, mark.IsZero())
	})

	t.Run("ledger failure leaves checkpoint untouched", func(t *testing.T) {
		f := newIngestFixture(t, []domain.Platform{platform})
		f.venue.fills[walletA] = []domain.Fill{perpFill("a", base)}
		f.ledger.insertErr = errors.New("pg down")

		stats, err := f.ingestor.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Failed)

		mark, err := f.checkpoints.Get(context.Background(), "plat-1")
		require.NoError(t, err)
		assert.True(t, mark.IsZero())
	})

	t.Run("platform without wallet is skipped, not failed", func(t *testing.T) {
		noWallet := domain.Platform{ID: "plat-3", Name: "Three", Active: true}
		f := newIngestFixture(t, []domain.Platform{noWallet})

		stats, err := f.ingestor.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Failed)
		assert.Equal(t, int64(0), stats.Ingested)
		assert.Equal(t, 0, f.venue.calls)
	})

	t.Run("distributed lock held elsewhere", func(t *testing.T) {
		f := newIngestFixture(t, []domain.Platform{platform})
		locks := &fakeLocks{held: true}
		agg := NewAggregator(f.ledger, f.summaries, nil, discardLogger())
		guarded := NewIngestor(f.platforms, f.venue, f.ledger, f.checkpoints, agg, testPolicy(t), locks, nil, 0, 2, discardLogger())

		_, err := guarded.RunCycle(context.Background())
		assert.ErrorIs(t, err, domain.ErrIngestionRunning)
	})

	t.Run("refreshes summaries after ingest", func(t *testing.T) {
		f := newIngestFixture(t, []domain.Platform{platform})
		f.venue.fills[walletA] = []domain.Fill{perpFill("a", time.Now().UTC().Add(-time.Hour))}

		_, err := f.ingestor.RunCycle(context.Background())
		require.NoError(t, err)

		s, err := f.summaries.Get(context.Background(), "plat-1", domain.PeriodAllTime,
			domain.PeriodAllTime.WindowStart(time.Now()))
		require.NoError(t, err)
		assert.Equal(t, int64(1), s.TradeCount)
		assert.True(t, s.TotalVolume.Equal(decimal.RequireFromString("1000")))
	})
}

func TestIngestLive(t *testing.T) {
	platform := domain.Platform{ID: "plat-1", Name: "One", WalletAddress: walletA, Active: true}
	ts := time.Now().UTC().Add(-time.Minute)

	t.Run("inserts without advancing checkpoint", func(t *testing.T) {
		f := newIngestFixture(t, []domain.Platform{platform})

		err := f.ingestor.IngestLive(context.Background(), "plat-1", []domain.Fill{perpFill("live-1", ts)})
		require.NoError(t, err)

		rows, err := f.ledger.ListByPlatform(context.Background(), "plat-1", domain.FeeTxFilter{})
		require.NoError(t, err)
		require.Len(t, rows, 1)

		mark, err := f.checkpoints.Get(context.Background(), "plat-1")
		require.NoError(t, err)
		assert.True(t, mark.IsZero())
	})

	t.Run("poll replay of a live fill is deduplicated", func(t *testing.T) {
		f := newIngestFixture(t, []domain.Platform{platform})

		err := f.ingestor.IngestLive(context.Background(), "plat-1", []domain.Fill{perpFill("live-1", ts)})
		require.NoError(t, err)

		f.venue.fills[walletA] = []domain.Fill{perpFill("live-1", ts)}
		stats, err := f.ingestor.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.Ingested)
		assert.Equal(t, int64(1), stats.Skipped)

		// The poll still advances the checkpoint past the replayed fill.
		mark, err := f.checkpoints.Get(context.Background(), "plat-1")
		require.NoError(t, err)
		assert.True(t, mark.Equal(ts))
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		f := newIngestFixture(t, []domain.Platform{platform})
		require.NoError(t, f.ingestor.IngestLive(context.Background(), "plat-1", nil))
		assert.Equal(t, 0, f.summaries.upserts)
	})
}
