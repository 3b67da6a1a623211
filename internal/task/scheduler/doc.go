// Package scheduler owns every timer in the process.
//
// Two kinds of work are registered here:
//   - deferred tasks: named, single-shot and cancellable. Scheduling a name
//     that is already pending replaces it, so at most one timer exists per name.
//   - schedules: cron expressions or fixed intervals (robfig/cron), used for
//     periodic host polls.
//
// Deferred tasks run on the injected clock, which lets tests drive them with a
// fake clock or inside a synctest bubble.
package scheduler
