package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTryAcquireRejectsThirdCallInsideWindow(t *testing.T) {
	t.Parallel()
	clk := clockwork.NewFakeClockAt(t0)
	l := New(clk)

	require.True(t, l.TryAcquire("sweep", 5*time.Second, 2))
	clk.Advance(time.Second)
	require.True(t, l.TryAcquire("sweep", 5*time.Second, 2))
	clk.Advance(time.Second)
	assert.False(t, l.TryAcquire("sweep", 5*time.Second, 2))
	assert.Equal(t, 2, l.Count("sweep", 5*time.Second))

	// The first hit leaves the window 5s after it was taken.
	clk.Advance(3 * time.Second)
	assert.True(t, l.TryAcquire("sweep", 5*time.Second, 2))
	assert.False(t, l.TryAcquire("sweep", 5*time.Second, 2))
}

func TestTryAcquireKeysAreIndependent(t *testing.T) {
	t.Parallel()
	l := New(clockwork.NewFakeClockAt(t0))

	require.True(t, l.TryAcquire("update-req-sgv", time.Minute, 1))
	assert.False(t, l.TryAcquire("update-req-sgv", time.Minute, 1))
	assert.True(t, l.TryAcquire("update-req-iob", time.Minute, 1))
}

func TestTryAcquireNonPositiveBudgetDisablesLimit(t *testing.T) {
	t.Parallel()
	l := New(clockwork.NewFakeClockAt(t0))
	for i := 0; i < 10; i++ {
		if !l.TryAcquire("k", 0, 1) || !l.TryAcquire("k", time.Second, 0) {
			t.Fatalf("call %d rejected with limiting disabled", i)
		}
	}
	assert.Equal(t, 0, l.Count("k", time.Second))
}

func TestSlidingWindowBound(t *testing.T) {
	t.Parallel()
	clk := clockwork.NewFakeClockAt(t0)
	l := New(clk)
	w := Window{Window: 5 * time.Second, Max: 3}

	var accepted []time.Time
	for i := 0; i < 200; i++ {
		if l.Allow("k", w) {
			accepted = append(accepted, clk.Now())
		}
		clk.Advance(time.Duration(150+(i*37)%900) * time.Millisecond)
	}
	require.NotEmpty(t, accepted)

	for i := range accepted {
		n := 0
		for j := i; j < len(accepted) && accepted[j].Sub(accepted[i]) < w.Window; j++ {
			n++
		}
		if n > w.Max {
			t.Fatalf("window starting at %v accepted %d calls, want <= %d", accepted[i], n, w.Max)
		}
	}
}

func TestCleanupKeepsLongWindowHistory(t *testing.T) {
	t.Parallel()
	clk := clockwork.NewFakeClockAt(t0)
	l := New(clk)

	require.True(t, l.TryAcquire("slow", time.Hour, 1))
	clk.Advance(20 * time.Minute)
	// Triggers cleanup; "slow" still has a hit inside its own window.
	require.True(t, l.TryAcquire("fast", time.Second, 1))
	assert.False(t, l.TryAcquire("slow", time.Hour, 1))
}

func TestResetForgetsKey(t *testing.T) {
	t.Parallel()
	l := New(clockwork.NewFakeClockAt(t0))
	require.True(t, l.TryAcquire("k", time.Minute, 1))
	l.Reset("k")
	assert.True(t, l.TryAcquire("k", time.Minute, 1))
}

func TestWindowValid(t *testing.T) {
	t.Parallel()
	assert.True(t, Window{Window: time.Second, Max: 1}.Valid())
	assert.False(t, Window{Window: 0, Max: 1}.Valid())
	assert.False(t, Window{Window: time.Second}.Valid())
}
