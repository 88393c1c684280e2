package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRegister(t *testing.T) {
	noop := func(ctx context.Context) error { return nil }

	t.Run("duplicate name rejected", func(t *testing.T) {
		s := NewScheduler(discardLogger())
		require.NoError(t, s.Register("@every 1h", Job{Name: "ingest", Run: noop}))
		err := s.Register("@every 2h", Job{Name: "ingest", Run: noop})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("bad cron expression rejected", func(t *testing.T) {
		s := NewScheduler(discardLogger())
		err := s.Register("not a cron", Job{Name: "ingest", Run: noop})
		require.Error(t, err)
	})

	t.Run("accepts descriptors and five-field expressions", func(t *testing.T) {
		s := NewScheduler(discardLogger())
		require.NoError(t, s.Register("@every 5m", Job{Name: "ingest", Run: noop}))
		require.NoError(t, s.Register("0 6 1 * *", Job{Name: "payouts", Run: noop}))
	})
}

func TestSchedulerTrigger(t *testing.T) {
	t.Run("runs the job synchronously", func(t *testing.T) {
		s := NewScheduler(discardLogger())
		var runs atomic.Int32
		require.NoError(t, s.Register("@every 1h", Job{
			Name: "ingest",
			Run: func(ctx context.Context) error {
				runs.Add(1)
				return nil
			},
		}))

		require.NoError(t, s.Trigger("ingest"))
		assert.Equal(t, int32(1), runs.Load())
	})

	t.Run("works without Start", func(t *testing.T) {
		s := NewScheduler(discardLogger())
		var ran bool
		require.NoError(t, s.Register("@every 1h", Job{
			Name: "report",
			Run: func(ctx context.Context) error {
				ran = true
				return nil
			},
		}))
		require.NoError(t, s.Trigger("report"))
		assert.True(t, ran)
	})

	t.Run("unknown job", func(t *testing.T) {
		s := NewScheduler(discardLogger())
		err := s.Trigger("nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("job error is isolated", func(t *testing.T) {
		s := NewScheduler(discardLogger())
		require.NoError(t, s.Register("@every 1h", Job{
			Name: "ingest",
			Run: func(ctx context.Context) error {
				return errors.New("boom")
			},
		}))
		// Trigger reports only registration lookups; run failures are logged.
		assert.NoError(t, s.Trigger("ingest"))
	})
}

func TestSchedulerStart(t *testing.T) {
	t.Run("second Start is a no-op", func(t *testing.T) {
		s := NewScheduler(discardLogger())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s.Start(ctx)
		s.Start(ctx)
		s.Stop()
	})

	t.Run("Stop before Start is safe", func(t *testing.T) {
		s := NewScheduler(discardLogger())
		s.Stop()
	})
}
