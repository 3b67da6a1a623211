package config

// Config is the on-disk configuration (JSON or YAML).
//
// All durations are Go duration strings (e.g. "700ms", "15s", "12m").
type Config struct {
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Scheduler   SchedulerConfig   `json:"scheduler" yaml:"scheduler"`
	Coordinator CoordinatorConfig `json:"coordinator" yaml:"coordinator"`
	Host        HostConfig        `json:"host" yaml:"host"`
	Debug       DebugConfig       `json:"debug" yaml:"debug"`
}

type LoggingConfig struct {
	Level   string      `json:"level" yaml:"level"`
	Console bool        `json:"console" yaml:"console"`
	File    LoggingFile `json:"file" yaml:"file"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days,omitempty" yaml:"max_age_days"`
}

// StorageConfig selects the persistence driver.
//
// Example:
//
//	storage: {driver: sqlite, path: ./tilesync.db}
//
// Changing it requires a restart.
type StorageConfig struct {
	Driver      string `json:"driver" yaml:"driver"`
	Path        string `json:"path" yaml:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty" yaml:"busy_timeout"` // sqlite only
}

type SchedulerConfig struct {
	// Timezone for cron schedules. Empty means Local.
	Timezone      string `json:"timezone,omitempty" yaml:"timezone"`
	StartupSpread bool   `json:"startup_spread,omitempty" yaml:"startup_spread"`
}

// CoordinatorConfig tunes refresh timing. Omitted fields take defaults:
//   - stale_threshold: 12m
//   - sweep_period: 15s
//   - debounce: 700ms
//   - refresh_limit: 2 per 5s
//   - sweep_limit: 5 per 1m
type CoordinatorConfig struct {
	StaleThreshold string      `json:"stale_threshold,omitempty" yaml:"stale_threshold"`
	SweepPeriod    string      `json:"sweep_period,omitempty" yaml:"sweep_period"`
	Debounce       string      `json:"debounce,omitempty" yaml:"debounce"`
	RefreshLimit   LimitConfig `json:"refresh_limit" yaml:"refresh_limit"`
	SweepLimit     LimitConfig `json:"sweep_limit" yaml:"sweep_limit"`
}

type LimitConfig struct {
	Window string `json:"window,omitempty" yaml:"window"`
	Max    int    `json:"max,omitempty" yaml:"max"`
}

// HostConfig describes the simulated watch face.
type HostConfig struct {
	// Poll is a schedule ("@every 5m", "*/5 * * * *", "5m").
	Poll  string       `json:"poll,omitempty" yaml:"poll"`
	Tiles []TileConfig `json:"tiles" yaml:"tiles"`
}

type TileConfig struct {
	ID       int    `json:"id" yaml:"id"`
	Kind     string `json:"kind" yaml:"kind"`
	DataType string `json:"data_type" yaml:"data_type"`
}

// DebugConfig enables the local pprof and state endpoint.
// A non-loopback addr requires token.
type DebugConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr,omitempty" yaml:"addr"`
	Token   string `json:"token,omitempty" yaml:"token"`
}
