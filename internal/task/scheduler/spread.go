package scheduler

import (
	"math/rand/v2"
	"time"

	"github.com/robfig/cron/v3"
)

const maxStartupSpread = 30 * time.Second

// spreadSchedule delays the first activation of a base schedule.
type spreadSchedule struct {
	base  cron.Schedule
	first time.Time
}

func (s *spreadSchedule) Next(t time.Time) time.Time {
	if !s.first.IsZero() && t.Before(s.first) {
		return s.first
	}
	return s.base.Next(t)
}

func intervalSchedule(every time.Duration, now time.Time, spread bool) cron.Schedule {
	base := cron.Every(every)
	if !spread {
		return base
	}
	limit := min(every, maxStartupSpread)
	if limit <= 0 {
		return base
	}
	jitter := time.Duration(rand.Int64N(int64(limit)))
	return &spreadSchedule{base: base, first: now.Add(every + jitter)}
}
