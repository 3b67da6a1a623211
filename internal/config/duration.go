package config

import (
	"strings"
	"time"

	"go.trai.ch/zerr"
)

var ErrInvalid = zerr.New("invalid config")

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, zerr.With(zerr.With(zerr.Wrap(ErrInvalid, "invalid duration"), "field", path), "value", raw)
	}
	if d < 0 {
		return 0, zerr.With(zerr.Wrap(ErrInvalid, "duration must be >= 0"), "field", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// Limit is a parsed rate budget. Zero means "use the default".
type Limit struct {
	Window time.Duration
	Max    int
}

// Timings is the parsed coordinator section. Zero fields mean "use the default".
type Timings struct {
	StaleThreshold time.Duration
	SweepPeriod    time.Duration
	Debounce       time.Duration
	RefreshLimit   Limit
	SweepLimit     Limit
}

// Timings parses the coordinator durations.
func (c CoordinatorConfig) Timings() (Timings, error) {
	var (
		t   Timings
		err error
	)
	if t.StaleThreshold, err = ParseDurationField("coordinator.stale_threshold", c.StaleThreshold); err != nil {
		return Timings{}, err
	}
	if t.SweepPeriod, err = ParseDurationField("coordinator.sweep_period", c.SweepPeriod); err != nil {
		return Timings{}, err
	}
	if t.Debounce, err = ParseDurationField("coordinator.debounce", c.Debounce); err != nil {
		return Timings{}, err
	}
	if t.RefreshLimit, err = c.RefreshLimit.parse("coordinator.refresh_limit"); err != nil {
		return Timings{}, err
	}
	if t.SweepLimit, err = c.SweepLimit.parse("coordinator.sweep_limit"); err != nil {
		return Timings{}, err
	}
	return t, nil
}

func (l LimitConfig) parse(path string) (Limit, error) {
	w, err := ParseDurationField(path+".window", l.Window)
	if err != nil {
		return Limit{}, err
	}
	if l.Max < 0 {
		return Limit{}, zerr.With(zerr.Wrap(ErrInvalid, "max must be >= 0"), "field", path+".max")
	}
	return Limit{Window: w, Max: l.Max}, nil
}
