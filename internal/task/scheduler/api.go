package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.trai.ch/zerr"

	logx "tilesync/pkg/logx"
)

var ErrNameRequired = zerr.New("schedule name required")

// AddSchedule parses schedule and registers either a cron or an interval job.
//
// Supported schedule formats:
//   - Cron: "*/5 * * * *", "55 * * * *", "@hourly", "@every 5m"
//   - Interval duration: "55m", "2h30m"
//   - Interval HH:MM: "00:50" (50 minutes), "02:30" (2 hours 30 minutes)
//
// Registering a name twice replaces the earlier schedule.
func (s *Service) AddSchedule(name, schedule string, timeout time.Duration, job func(ctx context.Context) error) error {
	ps, err := ParseSchedule(schedule)
	if err != nil {
		return err
	}
	if ps.Kind == SpecInterval {
		return s.AddInterval(name, ps.Every, timeout, job)
	}
	return s.AddCron(name, ps.Cron, timeout, job)
}

func (s *Service) AddCron(name, spec string, timeout time.Duration, job func(ctx context.Context) error) error {
	if _, err := s.parser.Parse(spec); err != nil {
		return zerr.With(zerr.Wrap(err, "invalid cron spec"), "spec", spec)
	}
	return s.add(scheduleDef{name: strings.TrimSpace(name), spec: spec, timeout: timeout, job: job})
}

func (s *Service) AddInterval(name string, every time.Duration, timeout time.Duration, job func(ctx context.Context) error) error {
	if every <= 0 {
		return zerr.With(zerr.Wrap(ErrInvalidSchedule, "interval must be > 0"), "every", every.String())
	}
	return s.add(scheduleDef{name: strings.TrimSpace(name), spec: "@every " + every.String(), timeout: timeout, job: job})
}

func (s *Service) add(d scheduleDef) error {
	if d.name == "" {
		return ErrNameRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeScheduleLocked(d.name)
	s.defs = append(s.defs, d)
	if s.c == nil {
		// Registered on Start.
		return nil
	}
	if err := s.addCronLocked(&s.defs[len(s.defs)-1]); err != nil {
		s.log.Error("schedule register failed", logx.String("name", d.name), logx.String("spec", d.spec), logx.Err(err))
		return err
	}
	args := []logx.Field{logx.String("name", d.name), logx.String("spec", d.spec)}
	if next := s.previewNextRunsLocked(d.spec, 3); next != "" {
		args = append(args, logx.String("next", next))
	}
	s.log.Debug("schedule registered", args...)
	return nil
}

// Remove unschedules the cron/interval schedule name. It reports whether
// something was removed.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	removed := s.removeScheduleLocked(strings.TrimSpace(name))
	s.mu.Unlock()
	if removed {
		s.log.Debug("schedule removed", logx.String("name", name))
	}
	return removed
}

func (s *Service) removeScheduleLocked(name string) bool {
	if name == "" {
		return false
	}
	removed := false
	n := 0
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

func (s *Service) addCronLocked(d *scheduleDef) error {
	name, timeout, fn := d.name, d.timeout, d.job
	job := cron.FuncJob(func() { s.runJob(name, timeout, fn) })

	spec := strings.TrimSpace(d.spec)
	if strings.HasPrefix(spec, "@every") {
		every, err := time.ParseDuration(strings.TrimSpace(strings.TrimPrefix(spec, "@every")))
		if err == nil && every > 0 {
			d.entryID = s.c.Schedule(intervalSchedule(every, s.clock.Now().In(s.loc), s.cfg.StartupSpread), job)
			return nil
		}
	}
	eid, err := s.c.AddJob(spec, job)
	if err != nil {
		return err
	}
	d.entryID = eid
	return nil
}

func (s *Service) runJob(name string, timeout time.Duration, job func(ctx context.Context) error) {
	s.mu.Lock()
	base := s.runCtx
	s.mu.Unlock()
	if base == nil || base.Err() != nil {
		return
	}
	ctx := base
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(base, timeout)
		defer cancel()
	}
	if err := job(ctx); err != nil {
		s.warn.Do("job:"+name, func() {
			s.log.Warn("scheduled job failed", logx.String("name", name), logx.Err(err))
		})
	}
}

// previewNextRunsLocked lists upcoming run times for a debug log line.
func (s *Service) previewNextRunsLocked(spec string, n int) string {
	if !s.log.Enabled(logx.LevelDebug) || n <= 0 {
		return ""
	}
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return ""
	}
	t := s.clock.Now().In(s.loc)
	var b strings.Builder
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	tz := s.cfg.Timezone
	c := s.c
	defs := make([]scheduleDef, len(s.defs))
	copy(defs, s.defs)
	if tz == "" && s.loc != nil {
		tz = s.loc.String()
	}
	s.mu.Unlock()

	items := make([]ScheduleInfo, 0, len(defs))
	for _, d := range defs {
		it := ScheduleInfo{Name: d.name, Spec: d.spec, Timeout: d.timeout}
		if c != nil && d.entryID != 0 {
			e := c.Entry(d.entryID)
			it.Next = e.Next
			it.Prev = e.Prev
		}
		items = append(items, it)
	}
	return Snapshot{
		Running:   c != nil,
		Timezone:  tz,
		Schedules: items,
		Pending:   s.pendingSnapshot(),
	}
}
