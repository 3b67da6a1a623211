// Package complication coordinates tile refreshes.
//
// The Coordinator reconciles three triggers into one de-duplicated,
// rate-limited stream of platform refresh requests:
//   - host polls (Update), answered with a payload or NoUpdateRequired
//   - upstream pushes (eventbus.DataUpdated), which refresh every active provider
//   - the self-rescheduling sweep, which refreshes tiles whose "since" label
//     drifted or whose data just went stale
//
// All coordinator state is owned by a single goroutine (Run). Lifecycle calls
// and timer firings are posted to it as closures, so no two reactions interleave
// their reads and writes of the store.
package complication
