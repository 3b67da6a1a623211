package config

import (
	"reflect"
	"strings"

	logx "tilesync/pkg/logx"
)

// Change summarises what differs between two configs.
type Change struct {
	// Sections lists changed top-level sections in file order.
	Sections []string
	// Fields are structured attrs for logging the change.
	Fields []logx.Field
	// RestartRequired is set when a section that cannot be hot-applied changed.
	RestartRequired bool
}

func (c Change) Changed(section string) bool {
	for _, s := range c.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// SummarizeConfigChange compares oldCfg and newCfg section by section.
func SummarizeConfigChange(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var ch Change

	if oldCfg.Logging != newCfg.Logging {
		ch.Sections = append(ch.Sections, "logging")
		ch.Fields = append(ch.Fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if !sameStorage(oldCfg.Storage, newCfg.Storage) {
		ch.Sections = append(ch.Sections, "storage")
		ch.RestartRequired = true
		ch.Fields = append(ch.Fields,
			logx.String("storage.driver", strings.TrimSpace(newCfg.Storage.Driver)),
			logx.String("storage.path", strings.TrimSpace(newCfg.Storage.Path)),
		)
	}

	if strings.TrimSpace(oldCfg.Scheduler.Timezone) != strings.TrimSpace(newCfg.Scheduler.Timezone) ||
		oldCfg.Scheduler.StartupSpread != newCfg.Scheduler.StartupSpread {
		ch.Sections = append(ch.Sections, "scheduler")
		ch.Fields = append(ch.Fields, logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)))
	}

	if oldCfg.Coordinator != newCfg.Coordinator {
		ch.Sections = append(ch.Sections, "coordinator")
		c := newCfg.Coordinator
		ch.Fields = append(ch.Fields,
			logx.String("coordinator.stale_threshold", c.StaleThreshold),
			logx.String("coordinator.sweep_period", c.SweepPeriod),
			logx.String("coordinator.debounce", c.Debounce),
		)
	}

	if strings.TrimSpace(oldCfg.Host.Poll) != strings.TrimSpace(newCfg.Host.Poll) ||
		!reflect.DeepEqual(oldCfg.Host.Tiles, newCfg.Host.Tiles) {
		ch.Sections = append(ch.Sections, "host")
		ch.Fields = append(ch.Fields,
			logx.String("host.poll", strings.TrimSpace(newCfg.Host.Poll)),
			logx.Int("host.tiles", len(newCfg.Host.Tiles)),
		)
	}
	if oldCfg.Debug != newCfg.Debug {
		ch.Sections = append(ch.Sections, "debug")
		ch.Fields = append(ch.Fields,
			logx.Bool("debug.enabled", newCfg.Debug.Enabled),
			logx.String("debug.addr", strings.TrimSpace(newCfg.Debug.Addr)),
		)
	}
	return ch
}

func sameStorage(a, b StorageConfig) bool {
	return strings.EqualFold(strings.TrimSpace(a.Driver), strings.TrimSpace(b.Driver)) &&
		strings.TrimSpace(a.Path) == strings.TrimSpace(b.Path) &&
		strings.TrimSpace(a.BusyTimeout) == strings.TrimSpace(b.BusyTimeout)
}
