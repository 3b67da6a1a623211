// Package upstream is the data side of tilesync: it persists readings pushed
// by the paired device and signals the coordinator that new data arrived.
package upstream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/zerr"

	"tilesync/internal/display"
	"tilesync/internal/eventbus"
	"tilesync/internal/storage"
	logx "tilesync/pkg/logx"
)

// Resender asks the paired device to push its current data again.
type Resender func(ctx context.Context) error

type Receiver struct {
	store  storage.Store
	bus    eventbus.Bus
	clock  clockwork.Clock
	log    logx.Logger
	resend Resender

	ingested atomic.Uint64
}

func NewReceiver(store storage.Store, bus eventbus.Bus, clock clockwork.Clock, log logx.Logger) *Receiver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Receiver{store: store, bus: bus, clock: clock, log: log.With(logx.String("comp", "upstream"))}
}

// SetResender installs the hook run on resend requests. Without one,
// requests are only logged.
func (r *Receiver) SetResender(fn Resender) { r.resend = fn }

// Ingested counts snapshots stored so far.
func (r *Receiver) Ingested() uint64 { return r.ingested.Load() }

// Ingest stores snap as the current data, stamps the arrival time and
// publishes eventbus.DataUpdated.
func (r *Receiver) Ingest(ctx context.Context, snap display.Snapshot) error {
	now := r.clock.Now()
	snap.UpdatedAt = now

	raw, err := snap.Encode()
	if err != nil {
		return zerr.Wrap(err, "encode snapshot")
	}
	if err := r.store.PutString(ctx, storage.KeySnapshot, raw); err != nil {
		return zerr.With(zerr.Wrap(err, "persist snapshot"), "key", storage.KeySnapshot)
	}
	if err := r.store.PutString(ctx, storage.KeyDataUpdatedAt, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		return zerr.With(zerr.Wrap(err, "persist snapshot"), "key", storage.KeyDataUpdatedAt)
	}
	r.ingested.Add(1)
	r.log.Debug("snapshot stored", logx.String("sgv", snap.Glucose.Value), logx.Time("reading_at", snap.ReadingAt()))
	r.bus.Publish(eventbus.Event{Type: eventbus.DataUpdated, Time: now})
	return nil
}

// Run answers resend requests until ctx is done.
func (r *Receiver) Run(ctx context.Context) error {
	ch, unsub := r.bus.Subscribe(4, eventbus.ResendRequested)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if r.resend == nil {
				r.log.Debug("resend requested; no device attached", logx.Any("tile", e.Data))
				continue
			}
			if err := r.resend(ctx); err != nil {
				r.log.Warn("resend request failed", logx.Any("tile", e.Data), logx.Err(err))
			}
		}
	}
}

// ReadJSONLines ingests one JSON snapshot per line until rd is exhausted or
// ctx is done. Blank lines are skipped; malformed lines are logged and skipped.
// It returns the number of snapshots ingested.
func ReadJSONLines(ctx context.Context, rd io.Reader, r *Receiver) (int, error) {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n, line := 0, 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return n, err
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var snap display.Snapshot
		if err := json.Unmarshal([]byte(text), &snap); err != nil {
			r.log.Warn("skipping malformed reading", logx.Int("line", line), logx.Err(err))
			continue
		}
		if err := r.Ingest(ctx, snap); err != nil {
			return n, err
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, zerr.Wrap(err, "read readings")
	}
	return n, nil
}
