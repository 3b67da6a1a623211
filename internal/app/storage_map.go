package app

import (
	"strings"
	"time"

	"go.trai.ch/zerr"

	"tilesync/internal/complication"
	"tilesync/internal/config"
	"tilesync/internal/host"
	"tilesync/internal/observability/debughttp"
	"tilesync/internal/ratelimit"
	"tilesync/internal/storage"
	logx "tilesync/pkg/logx"
)

const defaultBusyTimeout = time.Second

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	switch driver {
	case "", storage.DriverMemory:
		return storage.Config{Driver: storage.DriverMemory}, nil
	case storage.DriverFile:
		return storage.Config{Driver: driver, Path: strings.TrimSpace(sc.Path)}, nil
	case storage.DriverSQLite:
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, defaultBusyTimeout)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: driver, Path: strings.TrimSpace(sc.Path), BusyTimeout: busy}, nil
	default:
		return storage.Config{}, zerr.With(zerr.Wrap(storage.ErrUnknownDriver, "map storage config"), "driver", sc.Driver)
	}
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File: logx.FileConfig{
			Enabled:    l.File.Enabled,
			Path:       l.File.Path,
			MaxSizeMB:  l.File.MaxSizeMB,
			MaxBackups: l.File.MaxBackups,
			MaxAgeDays: l.File.MaxAgeDays,
		},
	}
}

// mapCoordinatorConfig leaves omitted values zero; the coordinator fills in
// its defaults.
func mapCoordinatorConfig(cfg *config.Config) (complication.Config, error) {
	t, err := cfg.Coordinator.Timings()
	if err != nil {
		return complication.Config{}, err
	}
	return complication.Config{
		StaleThreshold: t.StaleThreshold,
		SweepPeriod:    t.SweepPeriod,
		Debounce:       t.Debounce,
		RefreshLimit:   ratelimit.Window{Window: t.RefreshLimit.Window, Max: t.RefreshLimit.Max},
		SweepLimit:     ratelimit.Window{Window: t.SweepLimit.Window, Max: t.SweepLimit.Max},
	}, nil
}

func mapTiles(cfg *config.Config, reg *complication.Registry) ([]host.Tile, error) {
	out := make([]host.Tile, 0, len(cfg.Host.Tiles))
	for _, t := range cfg.Host.Tiles {
		kind := complication.Kind(strings.TrimSpace(t.Kind))
		if _, ok := reg.Lookup(kind); !ok {
			return nil, zerr.With(zerr.Wrap(complication.ErrUnknownProvider, "map tiles"), "kind", t.Kind)
		}
		dt := complication.ShortText
		if strings.TrimSpace(t.DataType) != "" {
			var err error
			if dt, err = complication.ParseDataType(t.DataType); err != nil {
				return nil, err
			}
		}
		out = append(out, host.Tile{ID: complication.TileID(t.ID), Kind: kind, Type: dt})
	}
	return out, nil
}

func mapDebugConfig(cfg *config.Config) debughttp.Config {
	return debughttp.Config{
		Enabled: cfg.Debug.Enabled,
		Addr:    strings.TrimSpace(cfg.Debug.Addr),
		Token:   strings.TrimSpace(cfg.Debug.Token),
	}
}
