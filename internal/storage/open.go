package storage

import (
	"strconv"
	"strings"

	"go.trai.ch/zerr"

	logx "tilesync/pkg/logx"
)

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	log = log.With(logx.String("driver", driver))

	switch driver {
	case "", DriverMemory:
		return newMemory(), nil
	case DriverFile:
		return openFile(cfg, log)
	case DriverSQLite, "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, zerr.With(zerr.Wrap(ErrUnknownDriver, "open storage"), "driver", cfg.Driver)
	}
}

func formatBool(v bool) string { return strconv.FormatBool(v) }

func parseBool(key, raw string, def bool) (bool, error) {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, zerr.With(zerr.Wrap(ErrBadValue, "not a bool"), "key", key)
	}
	return v, nil
}
