package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "tilesync/pkg/logx"
)

func newTestService() *Service {
	return New(Config{Timezone: "UTC"}, nil, logx.Nop())
}

func TestScheduleLatestArmingWins(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := newTestService()
		defer s.Stop(context.Background())

		var first, second atomic.Int32
		s.Schedule("update-req-sgv", time.Second, func() { first.Add(1) })
		s.Schedule("update-req-sgv", 3*time.Second, func() { second.Add(1) })

		due, ok := s.Pending("update-req-sgv")
		require.True(t, ok)
		assert.True(t, due.Equal(time.Now().Add(3*time.Second)), "due = %v", due)

		time.Sleep(2 * time.Second)
		synctest.Wait()
		assert.Zero(t, first.Load())
		assert.Zero(t, second.Load())

		time.Sleep(2 * time.Second)
		synctest.Wait()
		assert.Zero(t, first.Load(), "replaced action must never run")
		assert.Equal(t, int32(1), second.Load())

		_, ok = s.Pending("update-req-sgv")
		assert.False(t, ok)
	})
}

func TestScheduleAtMostOnePendingPerName(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := newTestService()
		defer s.Stop(context.Background())

		var runs atomic.Int32
		for i := 0; i < 10; i++ {
			s.Schedule("debounce", 700*time.Millisecond, func() { runs.Add(1) })
			time.Sleep(100 * time.Millisecond)
		}
		assert.Len(t, s.Snapshot().Pending, 1)

		time.Sleep(time.Second)
		synctest.Wait()
		assert.Equal(t, int32(1), runs.Load())
	})
}

func TestCancel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := newTestService()
		defer s.Stop(context.Background())

		var runs atomic.Int32
		s.Schedule("refresh-complication", 15*time.Second, func() { runs.Add(1) })
		require.True(t, s.Cancel("refresh-complication"))
		assert.False(t, s.Cancel("refresh-complication"))

		time.Sleep(time.Minute)
		synctest.Wait()
		assert.Zero(t, runs.Load())
	})
}

func TestCancelPrefix(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := newTestService()
		defer s.Stop(context.Background())

		var runs atomic.Int32
		s.Schedule("update-req-sgv", time.Second, func() { runs.Add(1) })
		s.Schedule("update-req-iob", time.Second, func() { runs.Add(1) })
		s.Schedule("refresh-complication", time.Second, func() { runs.Add(10) })

		assert.Equal(t, 2, s.CancelPrefix("update-req-"))
		time.Sleep(2 * time.Second)
		synctest.Wait()
		assert.Equal(t, int32(10), runs.Load())
	})
}

func TestSelfReschedulingTask(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := newTestService()

		var ticks atomic.Int32
		var tick func()
		tick = func() {
			if ticks.Add(1) < 4 {
				s.Schedule("loop", 15*time.Second, tick)
			}
		}
		s.Schedule("loop", 15*time.Second, tick)

		time.Sleep(2 * time.Minute)
		synctest.Wait()
		assert.Equal(t, int32(4), ticks.Load())
		assert.Empty(t, s.Snapshot().Pending)
		s.Stop(context.Background())
	})
}

func TestStopDropsPendingAndIgnoresNewTasks(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := newTestService()
		var runs atomic.Int32
		s.Schedule("a", time.Second, func() { runs.Add(1) })
		s.Stop(context.Background())
		s.Schedule("b", time.Second, func() { runs.Add(1) })

		time.Sleep(5 * time.Second)
		synctest.Wait()
		assert.Zero(t, runs.Load())
		assert.Empty(t, s.Snapshot().Pending)
	})
}

func TestPanickingTaskIsRecovered(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := newTestService()
		defer s.Stop(context.Background())

		var runs atomic.Int32
		s.Schedule("boom", time.Second, func() { panic("boom") })
		s.Schedule("after", 2*time.Second, func() { runs.Add(1) })
		time.Sleep(3 * time.Second)
		synctest.Wait()
		assert.Equal(t, int32(1), runs.Load())
	})
}

func TestIntervalSchedule(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := newTestService()
		var runs atomic.Int32
		require.NoError(t, s.AddSchedule("poll", "1m", 0, func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}))
		s.Start(ctx)

		time.Sleep(3*time.Minute + time.Second)
		synctest.Wait()
		assert.Equal(t, int32(3), runs.Load())

		snap := s.Snapshot()
		require.Len(t, snap.Schedules, 1)
		assert.Equal(t, "@every 1m0s", snap.Schedules[0].Spec)
		assert.True(t, snap.Running)

		assert.True(t, s.Remove("poll"))
		time.Sleep(3 * time.Minute)
		synctest.Wait()
		assert.Equal(t, int32(3), runs.Load())

		s.Stop(context.Background())
	})
}

func TestAddScheduleRejectsBadInput(t *testing.T) {
	t.Parallel()
	s := newTestService()
	job := func(context.Context) error { return nil }
	assert.ErrorIs(t, s.AddSchedule("", "5m", 0, job), ErrNameRequired)
	assert.ErrorIs(t, s.AddSchedule("x", "bogus", 0, job), ErrInvalidSchedule)
	assert.Error(t, s.AddCron("x", "61 * * * *", 0, job))
}
