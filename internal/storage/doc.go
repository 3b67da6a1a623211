// Package storage is the durable key/value layer behind tile bookkeeping and
// the last-known upstream snapshot.
//
// Values are strings or booleans under string keys, plus named string sets.
// Writes are last-write-wins. Three drivers are available:
//   - "memory": process-local, nothing survives a restart
//   - "file":   JSON snapshot + append-only JSON Lines journal
//   - "sqlite": SQLite database file (modernc.org/sqlite, no cgo)
package storage
