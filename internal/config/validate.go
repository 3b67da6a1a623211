package config

import (
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

var knownDrivers = map[string]bool{"": true, "memory": true, "file": true, "sqlite": true}

// Validate checks what can be checked without building components.
func Validate(cfg *Config) error {
	if cfg == nil {
		return zerr.Wrap(ErrInvalid, "config is nil")
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if !knownDrivers[driver] {
		return zerr.With(zerr.Wrap(ErrInvalid, "unknown storage driver"), "driver", cfg.Storage.Driver)
	}
	if (driver == "file" || driver == "sqlite") && strings.TrimSpace(cfg.Storage.Path) == "" {
		return zerr.With(zerr.Wrap(ErrInvalid, "storage.path required"), "driver", driver)
	}
	if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := cfg.Coordinator.Timings(); err != nil {
		return err
	}

	seen := map[int]bool{}
	for i, t := range cfg.Host.Tiles {
		field := "host.tiles[" + strconv.Itoa(i) + "]"
		if strings.TrimSpace(t.Kind) == "" {
			return zerr.With(zerr.Wrap(ErrInvalid, "tile kind required"), "field", field)
		}
		if seen[t.ID] {
			return zerr.With(zerr.With(zerr.Wrap(ErrInvalid, "duplicate tile id"), "field", field), "id", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}
