package storage

// Keys shared by the upstream receiver and the coordinator.
const (
	KeyDataUpdatedAt  = "data_updated_at" // unix ms
	KeySnapshot       = "snapshot"        // display.Snapshot JSON
	KeyLastShownSince = "last_shown_since"
	KeyStaleReported  = "stale_reported"
	KeyTiles          = "tiles" // set of tile keys

	DefaultShownSince = "-"
)
