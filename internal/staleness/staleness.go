// Package staleness classifies upstream data age and decides when the "since"
// sweep has to refresh tiles. Everything here is pure.
package staleness

import "time"

// DefaultThreshold is how old data may get before tiles show a warning.
const DefaultThreshold = 12 * time.Minute

// State is the render state of the current data.
type State int

const (
	Fresh State = iota
	// Outdated: data keeps arriving but the reading itself is old.
	Outdated
	// NoSync: nothing arrived from the paired device for too long.
	NoSync
)

func (s State) String() string {
	switch s {
	case NoSync:
		return "no-sync"
	case Outdated:
		return "outdated"
	default:
		return "fresh"
	}
}

// Stale reports whether s requires a warning payload.
func (s State) Stale() bool { return s != Fresh }

// Classify returns exactly one state for any input. No-sync wins over
// outdated. A zero timestamp is infinitely old.
func Classify(now, dataUpdatedAt, readingAt time.Time, threshold time.Duration) State {
	if expired(now, dataUpdatedAt, threshold) {
		return NoSync
	}
	if expired(now, readingAt, threshold) {
		return Outdated
	}
	return Fresh
}

func expired(now, t time.Time, threshold time.Duration) bool {
	return t.IsZero() || now.Sub(t) > threshold
}

// RefreshState is what the tiles were last refreshed with.
type RefreshState struct {
	LastRenderedSince string
	StaleReported     bool
}

// Scope selects which tiles a refresh addresses.
type Scope int

const (
	// ScopeSinceDependent: only tiles that show the since label.
	ScopeSinceDependent Scope = iota
	// ScopeAll: every active tile.
	ScopeAll
)

func (s Scope) String() string {
	if s == ScopeAll {
		return "all"
	}
	return "since-dependent"
}

// Decision is the outcome of a sweep evaluation.
type Decision struct {
	Fire         bool
	Next         RefreshState
	Scope        Scope
	SinceChanged bool
	NewlyStale   bool
}

// Decide fires when the since label differs from what was last rendered, or
// when staleness shows up for the first time. A stale refresh addresses all
// tiles; a label-only refresh addresses since-dependent tiles.
func Decide(prev RefreshState, sinceNow string, stale bool) Decision {
	d := Decision{
		SinceChanged: sinceNow != prev.LastRenderedSince,
		NewlyStale:   stale && !prev.StaleReported,
	}
	if !d.SinceChanged && !d.NewlyStale {
		return d
	}
	d.Fire = true
	d.Next = RefreshState{LastRenderedSince: sinceNow, StaleReported: stale}
	if stale {
		d.Scope = ScopeAll
	} else {
		d.Scope = ScopeSinceDependent
	}
	return d
}
