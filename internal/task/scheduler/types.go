package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	logx "tilesync/pkg/logx"
)

// Config controls the schedule side of the service.
type Config struct {
	Timezone string // IANA TZ for cron schedules, e.g. "Europe/Prague"

	// StartupSpread delays the first run of interval schedules by a random
	// amount (capped at 30s) so several of them do not fire together.
	StartupSpread bool
}

type scheduleDef struct {
	name    string
	spec    string // cron spec or @every
	timeout time.Duration
	job     func(ctx context.Context) error
	entryID cron.EntryID
}

// deferred is one pending single-shot task.
type deferred struct {
	ver    uint64
	due    time.Time
	timer  clockwork.Timer
	action func()
}

type Service struct {
	mu sync.Mutex

	log   logx.Logger
	cfg   Config
	clock clockwork.Clock
	loc   *time.Location
	warn  *logx.Throttle

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef
	runCtx context.Context
	cancel context.CancelFunc

	tmu     sync.Mutex
	tasks   map[string]*deferred
	seq     uint64
	stopped bool
}

// ScheduleInfo describes one registered cron/interval schedule.
type ScheduleInfo struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
}

// PendingInfo describes one deferred task waiting to fire.
type PendingInfo struct {
	Name string
	Due  time.Time
}

type Snapshot struct {
	Running   bool
	Timezone  string
	Schedules []ScheduleInfo
	Pending   []PendingInfo
}
