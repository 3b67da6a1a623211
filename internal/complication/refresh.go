package complication

import (
	"tilesync/internal/display"
	"tilesync/internal/staleness"
	logx "tilesync/pkg/logx"
)

// requestUpdate debounces one platform refresh per provider kind. Re-arming
// a kind before it fires replaces the pending request.
func (c *Coordinator) requestUpdate(ks []Kind) {
	cfg := c.config()
	for _, k := range ks {
		kind := k
		c.log.Debug("refresh pending", logx.String("kind", string(kind)))
		c.sched.Schedule(TaskUpdatePrefix+string(kind), cfg.Debounce, func() { c.dispatch(kind) })
	}
}

// dispatch runs on the timer goroutine, so the host may call Update from
// RequestRefreshAll.
func (c *Coordinator) dispatch(kind Kind) {
	w := c.config().RefreshLimit
	key := TaskUpdatePrefix + string(kind)
	if !c.limiter.TryAcquire(key, w.Window, w.Max) {
		c.drops.Do(key, func() {
			c.log.Debug("refresh dropped by rate limit", logx.String("kind", string(kind)))
		})
		return
	}
	c.log.Debug("requesting refresh", logx.String("kind", string(kind)))
	c.platform.RequestRefreshAll(kind)
}

// armSweep (re)schedules the staleness sweep.
func (c *Coordinator) armSweep() {
	c.sched.Schedule(TaskSweep, c.config().SweepPeriod, func() { c.post(c.sweep) })
}

// sweep evaluates the since label and staleness within the sweep budget and
// re-arms itself whatever the budget said. It dies only when it finds no
// active tile.
func (c *Coordinator) sweep() {
	regs := c.registrations()
	if len(regs) == 0 {
		c.log.Debug("sweep stopped: no active tiles")
		return
	}
	w := c.config().SweepLimit
	if c.limiter.TryAcquire(LimitKeySweep, w.Window, w.Max) {
		c.requestUpdateIfSinceChanged(regs)
	} else {
		c.drops.Do(LimitKeySweep, func() { c.log.Debug("sweep skipped by rate limit") })
	}
	c.armSweep()
}

func (c *Coordinator) requestUpdateIfSinceChanged(regs []Registration) {
	now := c.clock.Now()
	snap := c.persist.snapshot(c.ctx)
	since := display.SinceLabel(now, snap.ReadingAt())
	state := staleness.Classify(now, c.persist.dataUpdatedAt(c.ctx), snap.ReadingAt(), c.config().StaleThreshold)

	prev := c.persist.refreshState(c.ctx)
	d := staleness.Decide(prev, since, state.Stale())
	if !d.Fire {
		return
	}
	c.persist.putRefreshState(c.ctx, d.Next)

	c.log.Debug("tiles need refresh",
		logx.String("state", state.String()),
		logx.String("scope", d.Scope.String()),
		logx.String("since_from", prev.LastRenderedSince),
		logx.String("since_to", since),
	)
	c.requestUpdate(kinds(regs, d.Scope == staleness.ScopeSinceDependent))
}
