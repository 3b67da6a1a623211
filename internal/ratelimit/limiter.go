// Package ratelimit provides a per-key sliding-window limiter.
//
// Unlike a token bucket, a sliding window guarantees that for any key the
// number of accepted calls inside any rolling window never exceeds the limit.
// Rejected calls are dropped, never queued.
package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Window describes a rate budget: at most Max accepted calls per rolling Window.
type Window struct {
	Window time.Duration
	Max    int
}

// Valid reports whether the window can accept anything at all.
func (w Window) Valid() bool { return w.Window > 0 && w.Max > 0 }

const defaultMaxKeys = 4096

// history keeps accepted call times in arrival order.
type history struct {
	window time.Duration
	at     []time.Time
}

// Limiter tracks accepted call times per key.
type Limiter struct {
	mu    sync.Mutex
	clock clockwork.Clock
	hits  map[string]*history

	maxKeys     int
	lastCleanup time.Time
}

func New(clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Limiter{
		clock:   clock,
		hits:    map[string]*history{},
		maxKeys: defaultMaxKeys,
	}
}

// TryAcquire records a call for key and reports whether it fits the budget.
// A non-positive window or max disables limiting for the call.
func (l *Limiter) TryAcquire(key string, window time.Duration, maxCount int) bool {
	if window <= 0 || maxCount <= 0 {
		return true
	}
	k := strings.TrimSpace(key)
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.hits) > l.maxKeys || now.Sub(l.lastCleanup) > 10*time.Minute {
		l.cleanupLocked(now)
		l.lastCleanup = now
	}

	h := l.hits[k]
	if h == nil {
		h = &history{}
		l.hits[k] = h
	}
	if window > h.window {
		h.window = window
	}
	h.at = prune(h.at, now.Add(-window))
	if len(h.at) >= maxCount {
		return false
	}
	h.at = append(h.at, now)
	return true
}

// Allow is TryAcquire with a Window value.
func (l *Limiter) Allow(key string, w Window) bool {
	return l.TryAcquire(key, w.Window, w.Max)
}

// Count returns the number of accepted calls for key within the trailing window.
func (l *Limiter) Count(key string, window time.Duration) int {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	h := l.hits[strings.TrimSpace(key)]
	if h == nil {
		return 0
	}
	return len(prune(h.at, now.Add(-window)))
}

// Reset forgets the history of key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.hits, strings.TrimSpace(key))
	l.mu.Unlock()
}

// prune drops entries at or before cutoff. Entries are kept in arrival order,
// so the first entry newer than cutoff ends the scan.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	out := make([]time.Time, len(ts)-i)
	copy(out, ts[i:])
	return out
}

// cleanupLocked drops keys whose newest hit is older than the widest window
// ever used with that key.
func (l *Limiter) cleanupLocked(now time.Time) {
	for k, h := range l.hits {
		if h == nil || len(h.at) == 0 || now.Sub(h.at[len(h.at)-1]) > h.window {
			delete(l.hits, k)
		}
	}
}
