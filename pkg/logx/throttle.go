package logx

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle bounds how often a repeated log line is emitted, per key.
//
// The first call for a key always runs; afterwards at most once per interval.
// A nil Throttle never suppresses.
type Throttle struct {
	mu    sync.Mutex
	every time.Duration
	m     map[string]*rate.Sometimes
}

func NewThrottle(every time.Duration) *Throttle {
	if every <= 0 {
		every = 5 * time.Second
	}
	return &Throttle{every: every, m: map[string]*rate.Sometimes{}}
}

// Do runs fn unless the key was logged within the throttle interval.
func (t *Throttle) Do(key string, fn func()) {
	if fn == nil {
		return
	}
	if t == nil {
		fn()
		return
	}
	k := strings.TrimSpace(key)

	t.mu.Lock()
	st := t.m[k]
	if st == nil {
		st = &rate.Sometimes{First: 1, Interval: t.every}
		t.m[k] = st
	}
	t.mu.Unlock()

	st.Do(fn)
}
