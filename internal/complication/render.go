package complication

import (
	"context"
	"time"

	"tilesync/internal/display"
	"tilesync/internal/staleness"
	logx "tilesync/pkg/logx"
)

const (
	titleNoSync   = "No data from phone"
	titleOutdated = "Reading is old"
	textNoSource  = "Is the phone app running?"
	markNoSync    = "!err!"
	markOutdated  = "!old!"
)

// Update answers a host request for tile data. The host always gets exactly
// one answer: UpdateTileData with a payload, or NoUpdateRequired.
func (c *Coordinator) Update(ctx context.Context, id TileID, dt DataType) error {
	return c.do(ctx, func() { c.render(id, dt) })
}

func (c *Coordinator) render(id TileID, dt DataType) {
	p := c.buildPayload(id, dt)
	if p == nil {
		c.platform.NoUpdateRequired(id)
		return
	}
	c.platform.UpdateTileData(id, p)
}

func (c *Coordinator) buildPayload(id TileID, dt DataType) *Payload {
	log := c.log.With(logx.Int("tile", int(id)), logx.String("type", dt.String()))
	reg, ok := c.registration(id)
	if !ok {
		log.Warn("update for unknown tile")
		return nil
	}
	prov, ok := c.registry.Lookup(reg.Kind)
	if !ok {
		log.Warn("update for unknown provider", logx.String("kind", string(reg.Kind)))
		return nil
	}

	now := c.clock.Now()
	snap := c.persist.snapshot(c.ctx)
	updatedAt := c.persist.dataUpdatedAt(c.ctx)

	// Every render is a fresh baseline for the sweep.
	c.persist.putRefreshState(c.ctx, staleness.RefreshState{
		LastRenderedSince: display.SinceLabel(now, snap.ReadingAt()),
	})

	tap := TapAction{Kind: prov.Action, Tile: id, Provider: reg.Kind}
	state := staleness.Classify(now, updatedAt, snap.ReadingAt(), c.config().StaleThreshold)
	log.Trace("rendering", logx.String("state", state.String()))

	switch state {
	case staleness.NoSync:
		return c.warningPayload(log, warning{
			dt: dt, snap: snap, prov: prov, tap: tap, now: now,
			since: updatedAt, action: ActionWarningSync,
			icon: IconSyncAlert, mark: markNoSync, title: titleNoSync,
		})
	case staleness.Outdated:
		return c.warningPayload(log, warning{
			dt: dt, snap: snap, prov: prov, tap: tap, now: now,
			since: snap.ReadingAt(), action: ActionWarningOld,
			icon: IconAlert, burnIn: IconAlertBurnIn, mark: markOutdated, title: titleOutdated,
		})
	}
	p := prov.Renderer.BuildPayload(dt, snap, tap)
	if p == nil {
		log.Warn("renderer returned no payload", logx.String("kind", string(reg.Kind)))
	}
	return p
}

type warning struct {
	dt     DataType
	snap   display.Snapshot
	prov   Provider
	tap    TapAction
	now    time.Time
	since  time.Time
	action TapKind
	icon   string
	burnIn string
	mark   string
	title  string
}

// warningPayload builds the no-sync or outdated payload. Large images have
// no warning form and go to the renderer unchanged.
func (c *Coordinator) warningPayload(log logx.Logger, w warning) *Payload {
	if w.dt == LargeImage {
		return w.prov.Renderer.BuildPayload(w.dt, w.snap, w.tap)
	}

	p := &Payload{Type: w.dt, Icon: w.icon, BurnInIcon: w.burnIn}
	p.Tap = TapAction{Kind: w.action, Tile: w.tap.Tile, Provider: w.tap.Provider, Since: w.since}

	age := ""
	if !w.since.IsZero() {
		age = display.SinceLabel(w.now, w.since)
	}
	switch w.dt {
	case ShortText, Icon, RangedValue:
		if age != "" {
			p.ShortText = age + " old"
		} else {
			p.ShortText = w.mark
		}
		if w.dt == RangedValue {
			p.Min, p.Max, p.Value = 0, 100, 0
		}
	case LongText:
		p.LongTitle = w.title
		if age != "" {
			p.LongText = "Last data " + age + " ago"
		} else {
			p.LongText = textNoSource
		}
	default:
		log.Warn("unsupported data type for warning")
		return nil
	}
	return p
}
