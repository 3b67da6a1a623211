package complication

import (
	"time"

	"tilesync/internal/ratelimit"
	"tilesync/internal/staleness"
)

const (
	TaskSweep         = "refresh-complication"
	TaskUpdatePrefix  = "update-req-"
	LimitKeySweep     = "complication-sweep"
	DefaultSweep      = 15 * time.Second
	DefaultDebounce   = 700 * time.Millisecond
	eventBufferLength = 16
)

// Config holds the coordinator timings. Zero fields take defaults.
type Config struct {
	StaleThreshold time.Duration
	SweepPeriod    time.Duration
	Debounce       time.Duration
	// RefreshLimit bounds platform refresh calls per provider kind.
	RefreshLimit ratelimit.Window
	// SweepLimit bounds sweep evaluations.
	SweepLimit ratelimit.Window
}

func DefaultConfig() Config {
	return Config{
		StaleThreshold: staleness.DefaultThreshold,
		SweepPeriod:    DefaultSweep,
		Debounce:       DefaultDebounce,
		RefreshLimit:   ratelimit.Window{Window: 5 * time.Second, Max: 2},
		SweepLimit:     ratelimit.Window{Window: time.Minute, Max: 5},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = d.StaleThreshold
	}
	if c.SweepPeriod <= 0 {
		c.SweepPeriod = d.SweepPeriod
	}
	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if !c.RefreshLimit.Valid() {
		c.RefreshLimit = d.RefreshLimit
	}
	if !c.SweepLimit.Valid() {
		c.SweepLimit = d.SweepLimit
	}
	return c
}
