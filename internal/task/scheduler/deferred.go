package scheduler

import (
	"sort"
	"strings"
	"time"

	logx "tilesync/pkg/logx"
)

// Schedule arms the deferred task name to run action after delay.
//
// A pending task with the same name is cancelled and replaced: the effective
// delay and action are always those of the latest call. A timer that already
// fired but lost the race against a re-arm is ignored through the version check.
// Actions run on the timer goroutine and must not block.
func (s *Service) Schedule(name string, delay time.Duration, action func()) {
	name = strings.TrimSpace(name)
	if name == "" || action == nil {
		return
	}
	if delay < 0 {
		delay = 0
	}

	s.tmu.Lock()
	defer s.tmu.Unlock()
	if s.stopped {
		s.log.Debug("deferred task ignored after stop", logx.String("name", name))
		return
	}
	if old, ok := s.tasks[name]; ok {
		old.timer.Stop()
	}
	s.seq++
	ver := s.seq
	d := &deferred{ver: ver, due: s.clock.Now().Add(delay), action: action}
	d.timer = s.clock.AfterFunc(delay, func() { s.fire(name, ver) })
	s.tasks[name] = d
}

func (s *Service) fire(name string, ver uint64) {
	s.tmu.Lock()
	d, ok := s.tasks[name]
	if !ok || d.ver != ver {
		s.tmu.Unlock()
		return
	}
	delete(s.tasks, name)
	s.tmu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("deferred task panic", logx.String("name", name), logx.Any("panic", r))
		}
	}()
	d.action()
}

// Cancel drops the pending task name. It reports whether one was pending.
func (s *Service) Cancel(name string) bool {
	name = strings.TrimSpace(name)
	s.tmu.Lock()
	defer s.tmu.Unlock()
	d, ok := s.tasks[name]
	if !ok {
		return false
	}
	d.timer.Stop()
	delete(s.tasks, name)
	return true
}

// CancelPrefix drops every pending task whose name starts with prefix and
// returns how many were dropped.
func (s *Service) CancelPrefix(prefix string) int {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	n := 0
	for name, d := range s.tasks {
		if strings.HasPrefix(name, prefix) {
			d.timer.Stop()
			delete(s.tasks, name)
			n++
		}
	}
	return n
}

// Pending reports when the task name is due, if it is pending.
func (s *Service) Pending(name string) (time.Time, bool) {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	d, ok := s.tasks[strings.TrimSpace(name)]
	if !ok {
		return time.Time{}, false
	}
	return d.due, true
}

func (s *Service) pendingSnapshot() []PendingInfo {
	s.tmu.Lock()
	out := make([]PendingInfo, 0, len(s.tasks))
	for name, d := range s.tasks {
		out = append(out, PendingInfo{Name: name, Due: d.due})
	}
	s.tmu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
