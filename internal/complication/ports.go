package complication

import (
	"time"

	"tilesync/internal/display"
)

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

// Platform is the tile host.
//
// UpdateTileData and NoUpdateRequired are called from the coordinator
// goroutine and must not call back into the Coordinator synchronously.
// RequestRefreshAll is called from timer goroutines and may.
type Platform interface {
	UpdateTileData(id TileID, p *Payload)
	NoUpdateRequired(id TileID)
	RequestRefreshAll(kind Kind)
}

// Renderer builds the payload for fresh data. It returns nil for data
// types it does not support.
type Renderer interface {
	BuildPayload(dt DataType, snap display.Snapshot, tap TapAction) *Payload
}

// Scheduler runs named deferred tasks; scheduling a pending name replaces it.
type Scheduler interface {
	Schedule(name string, delay time.Duration, action func())
	Cancel(name string) bool
	CancelPrefix(prefix string) int
}

// Limiter is a per-key sliding-window rate limiter.
type Limiter interface {
	TryAcquire(key string, window time.Duration, maxCount int) bool
}
