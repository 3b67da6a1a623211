package complication

import (
	"context"

	"tilesync/internal/eventbus"
	logx "tilesync/pkg/logx"
)

// Activate registers a tile. Repeated activation overwrites the registration.
// The first active tile subscribes to upstream data; every activation asks
// the paired device to resend its data, requests a refresh of all active
// providers and re-arms the sweep.
func (c *Coordinator) Activate(ctx context.Context, r Registration) error {
	return c.do(ctx, func() {
		c.log.Info("tile activated", logx.Int("tile", int(r.ID)), logx.String("kind", string(r.Kind)), logx.Bool("since", r.DependsOnSince))
		c.persist.register(c.ctx, r)
		c.tiles[r.ID] = r
		c.subscribe()
		c.bus.Publish(eventbus.Event{Type: eventbus.ResendRequested, Time: c.clock.Now(), Data: r.ID})
		c.requestUpdate(kinds(c.registrations(), false))
		c.armSweep()
	})
}

// Deactivate removes a tile. Removing the last one drops the upstream
// subscription and cancels the sweep and any pending refresh.
func (c *Coordinator) Deactivate(ctx context.Context, id TileID) error {
	return c.do(ctx, func() {
		c.persist.unregister(c.ctx, id)
		delete(c.tiles, id)
		left := len(c.registrations())
		c.log.Info("tile deactivated", logx.Int("tile", int(id)), logx.Int("active", left))
		if left > 0 {
			return
		}
		c.unsubscribe()
		c.sched.Cancel(TaskSweep)
		c.sched.CancelPrefix(TaskUpdatePrefix)
	})
}

// Registrations returns the active tiles ordered by id.
func (c *Coordinator) Registrations(ctx context.Context) ([]Registration, error) {
	var out []Registration
	err := c.do(ctx, func() { out = c.registrations() })
	return out, err
}

func (c *Coordinator) onDataUpdated(e eventbus.Event) {
	regs := c.registrations()
	if len(regs) == 0 {
		return
	}
	c.log.Debug("upstream data arrived", logx.Time("at", e.Time), logx.Int("tiles", len(regs)))
	c.armSweep()
	c.requestUpdate(kinds(regs, false))
}

// registrations reads the store and falls back to the tiles activated by
// this process when the store fails.
func (c *Coordinator) registrations() []Registration {
	if regs, err := c.persist.registrations(c.ctx); err == nil {
		return regs
	}
	out := make([]Registration, 0, len(c.tiles))
	for _, r := range c.tiles {
		out = append(out, r)
	}
	sortRegistrations(out)
	return out
}

func (c *Coordinator) registration(id TileID) (Registration, bool) {
	r, ok, err := c.persist.registration(c.ctx, id)
	if err != nil {
		r, ok = c.tiles[id]
	}
	return r, ok
}
