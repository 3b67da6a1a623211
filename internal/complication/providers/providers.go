// Package providers holds the tile renderers shipped with tilesync.
package providers

import (
	"strconv"

	"github.com/jonboulle/clockwork"

	"tilesync/internal/complication"
	"tilesync/internal/display"
	logx "tilesync/pkg/logx"
)

const (
	KindBrCobIob complication.Kind = "brcobiob"
	KindSGV      complication.Kind = "sgv"
	KindIOB      complication.Kind = "iob"
)

// Field widths of the host's short text slot.
const (
	maxShortLen = 7
	minCOBLen   = 3
	minIOBLen   = 3
)

const basalSymbol = "β"

// Ranged value bounds for glucose in mg/dl.
const (
	rangeMin = 40.0
	rangeMax = 400.0
)

// Register adds every built-in provider to reg.
func Register(reg *complication.Registry, clock clockwork.Clock, log logx.Logger) error {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "providers"))

	for kind, p := range map[complication.Kind]complication.Provider{
		KindBrCobIob: {Renderer: brCobIob{log: log}},
		KindSGV:      {Renderer: sgv{clock: clock, log: log}, UsesSince: true},
		KindIOB:      {Renderer: iob{log: log}},
	} {
		if err := reg.Register(kind, p); err != nil {
			return err
		}
	}
	return nil
}

func unsupported(log logx.Logger, kind complication.Kind, dt complication.DataType) *complication.Payload {
	log.Warn("unexpected data type", logx.String("kind", string(kind)), logx.String("type", dt.String()))
	return nil
}

// brCobIob shows the current basal with carbs and insulin on board as title.
type brCobIob struct{ log logx.Logger }

func (r brCobIob) BuildPayload(dt complication.DataType, snap display.Snapshot, tap complication.TapAction) *complication.Payload {
	if dt != complication.ShortText {
		return unsupported(r.log, KindBrCobIob, dt)
	}
	cob := display.Minimise(snap.Status.COB, minCOBLen)
	iob := display.Minimise(snap.Status.IOBSum, max(minIOBLen, maxShortLen-1-len(cob)))
	return &complication.Payload{
		Type:       dt,
		ShortText:  basalSymbol + snap.Status.CurrentBasal,
		ShortTitle: cob + " " + iob,
		Tap:        tap,
	}
}

// sgv shows the glucose reading.
type sgv struct {
	clock clockwork.Clock
	log   logx.Logger
}

func (r sgv) BuildPayload(dt complication.DataType, snap display.Snapshot, tap complication.TapAction) *complication.Payload {
	g := snap.Glucose
	p := &complication.Payload{Type: dt, Tap: tap}
	switch dt {
	case complication.ShortText:
		p.ShortText = g.Value
		p.ShortTitle = g.Delta
	case complication.LongText:
		p.LongTitle = g.Value + " " + g.Delta
		p.LongText = display.SinceLabel(r.clock.Now(), g.Timestamp) + " ago"
		if g.AvgDelta != "" {
			p.LongText += ", avg " + g.AvgDelta
		}
	case complication.RangedValue:
		p.ShortText = g.Value
		p.Min, p.Max = rangeMin, rangeMax
		p.Value = min(max(mgdl(g), rangeMin), rangeMax)
	default:
		return unsupported(r.log, KindSGV, dt)
	}
	return p
}

func mgdl(g display.Glucose) float64 {
	if g.Mgdl > 0 {
		return g.Mgdl
	}
	v, err := strconv.ParseFloat(g.Value, 64)
	if err != nil {
		return 0
	}
	return v
}

// iob shows insulin on board.
type iob struct{ log logx.Logger }

func (r iob) BuildPayload(dt complication.DataType, snap display.Snapshot, tap complication.TapAction) *complication.Payload {
	st := snap.Status
	p := &complication.Payload{Type: dt, Tap: tap}
	switch dt {
	case complication.ShortText:
		p.ShortText = display.Minimise(st.IOBSum, maxShortLen)
		p.ShortTitle = "IOB"
	case complication.LongText:
		p.LongTitle = "IOB " + st.IOBSum
		p.LongText = st.IOBDetail
	default:
		return unsupported(r.log, KindIOB, dt)
	}
	return p
}
