package complication

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zerr"

	"tilesync/internal/display"
	"tilesync/internal/staleness"
	"tilesync/internal/storage"
	logx "tilesync/pkg/logx"
)

const tileKeyPrefix = "tile_"

// TileKey is the store key of a tile registration.
func TileKey(id TileID) string { return tileKeyPrefix + id.String() }

func sinceKey(id TileID) string { return TileKey(id) + "_since" }

func parseTileKey(key string) (TileID, bool) {
	raw, ok := strings.CutPrefix(key, tileKeyPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return TileID(n), true
}

// persistence is a best-effort facade over the store: failures are logged
// (throttled per operation) and reads fall back to defaults.
type persistence struct {
	store storage.Store
	log   logx.Logger
	warn  *logx.Throttle
}

func newPersistence(store storage.Store, log logx.Logger) *persistence {
	return &persistence{store: store, log: log, warn: logx.NewThrottle(30 * time.Second)}
}

func (p *persistence) failed(op, key string, err error) {
	p.warn.Do(op, func() {
		p.log.Warn("persistence failed; using defaults", logx.String("op", op), logx.String("key", key), logx.Err(err))
	})
}

func (p *persistence) getString(ctx context.Context, key, def string) string {
	v, err := p.store.GetString(ctx, key, def)
	if err != nil {
		p.failed("get_string", key, err)
		return def
	}
	return v
}

func (p *persistence) putString(ctx context.Context, key, v string) {
	if err := p.store.PutString(ctx, key, v); err != nil {
		p.failed("put_string", key, err)
	}
}

func (p *persistence) getBool(ctx context.Context, key string, def bool) bool {
	v, err := p.store.GetBool(ctx, key, def)
	if err != nil {
		p.failed("get_bool", key, err)
		return def
	}
	return v
}

func (p *persistence) putBool(ctx context.Context, key string, v bool) {
	if err := p.store.PutBool(ctx, key, v); err != nil {
		p.failed("put_bool", key, err)
	}
}

func (p *persistence) dataUpdatedAt(ctx context.Context) time.Time {
	raw := p.getString(ctx, storage.KeyDataUpdatedAt, "")
	if raw == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err == nil && ms <= 0 {
		err = zerr.With(zerr.Wrap(storage.ErrBadValue, "timestamp not positive"), "ms", ms)
	}
	if err != nil {
		p.failed("parse_updated_at", storage.KeyDataUpdatedAt, err)
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (p *persistence) snapshot(ctx context.Context) display.Snapshot {
	snap, err := display.DecodeSnapshot(p.getString(ctx, storage.KeySnapshot, ""))
	if err != nil {
		p.failed("decode_snapshot", storage.KeySnapshot, err)
		return display.Snapshot{}
	}
	return snap
}

func (p *persistence) refreshState(ctx context.Context) staleness.RefreshState {
	return staleness.RefreshState{
		LastRenderedSince: p.getString(ctx, storage.KeyLastShownSince, storage.DefaultShownSince),
		StaleReported:     p.getBool(ctx, storage.KeyStaleReported, false),
	}
}

func (p *persistence) putRefreshState(ctx context.Context, rs staleness.RefreshState) {
	p.putString(ctx, storage.KeyLastShownSince, rs.LastRenderedSince)
	p.putBool(ctx, storage.KeyStaleReported, rs.StaleReported)
}

func (p *persistence) register(ctx context.Context, r Registration) {
	key := TileKey(r.ID)
	p.putString(ctx, key, string(r.Kind))
	p.putBool(ctx, sinceKey(r.ID), r.DependsOnSince)
	if err := p.store.AddToSet(ctx, storage.KeyTiles, key); err != nil {
		p.failed("add_to_set", key, err)
	}
}

func (p *persistence) unregister(ctx context.Context, id TileID) {
	key := TileKey(id)
	if err := p.store.RemoveFromSet(ctx, storage.KeyTiles, key); err != nil {
		p.failed("remove_from_set", key, err)
	}
	for _, k := range []string{key, sinceKey(id)} {
		if err := p.store.Delete(ctx, k); err != nil {
			p.failed("delete", k, err)
		}
	}
}

// registration reads one tile. A missing tile is !ok with a nil error.
func (p *persistence) registration(ctx context.Context, id TileID) (Registration, bool, error) {
	key := TileKey(id)
	kind, err := p.store.GetString(ctx, key, "")
	if err != nil {
		p.failed("get_string", key, err)
		return Registration{}, false, err
	}
	if kind == "" {
		return Registration{}, false, nil
	}
	return Registration{ID: id, Kind: Kind(kind), DependsOnSince: p.getBool(ctx, sinceKey(id), false)}, true, nil
}

// registrations returns the persisted tiles ordered by id.
func (p *persistence) registrations(ctx context.Context) ([]Registration, error) {
	members, err := p.store.GetSet(ctx, storage.KeyTiles)
	if err != nil {
		p.failed("get_set", storage.KeyTiles, err)
		return nil, err
	}
	out := make([]Registration, 0, len(members))
	for _, m := range members {
		id, ok := parseTileKey(m)
		if !ok {
			continue
		}
		r, ok, err := p.registration(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	sortRegistrations(out)
	return out, nil
}

// purge drops every persisted registration and returns how many there were.
func (p *persistence) purge(ctx context.Context) int {
	members, err := p.store.GetSet(ctx, storage.KeyTiles)
	if err != nil {
		p.failed("get_set", storage.KeyTiles, err)
		return 0
	}
	for _, m := range members {
		if id, ok := parseTileKey(m); ok {
			p.unregister(ctx, id)
			continue
		}
		if err := p.store.RemoveFromSet(ctx, storage.KeyTiles, m); err != nil {
			p.failed("remove_from_set", m, err)
		}
	}
	return len(members)
}

func sortRegistrations(regs []Registration) {
	slices.SortFunc(regs, func(a, b Registration) int { return int(a.ID) - int(b.ID) })
}

// kinds returns the distinct provider kinds of regs, optionally only those
// depending on the since label.
func kinds(regs []Registration, sinceOnly bool) []Kind {
	var out []Kind
	for _, r := range regs {
		if sinceOnly && !r.DependsOnSince {
			continue
		}
		if !slices.Contains(out, r.Kind) {
			out = append(out, r.Kind)
		}
	}
	slices.Sort(out)
	return out
}
