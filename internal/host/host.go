// Package host is an in-process stand-in for the watch face that shows the
// tiles. It implements complication.Platform, keeps the last payload of each
// tile and polls the coordinator on a schedule.
package host

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.trai.ch/zerr"

	"tilesync/internal/complication"
	logx "tilesync/pkg/logx"
)

const (
	DefaultPoll = "@every 5m"
	pollTask    = "host-poll"
	callTimeout = 5 * time.Second
)

var (
	ErrUnknownTile = zerr.New("unknown tile")
	ErrDetached    = zerr.New("host has no coordinator")
)

// Coordinator is what the host calls back into.
type Coordinator interface {
	Activate(ctx context.Context, r complication.Registration) error
	Deactivate(ctx context.Context, id complication.TileID) error
	Update(ctx context.Context, id complication.TileID, dt complication.DataType) error
}

// Scheduler registers the poll job.
type Scheduler interface {
	AddSchedule(name, schedule string, timeout time.Duration, job func(ctx context.Context) error) error
	Remove(name string) bool
}

// Tile is one slot on the watch face.
type Tile struct {
	ID   complication.TileID
	Kind complication.Kind
	Type complication.DataType
}

type slot struct {
	Tile
	payload *complication.Payload
	updates int
	skipped int
}

// Stats are per-tile counters.
type Stats struct {
	Updates int
	Skipped int
}

type Host struct {
	mu       sync.RWMutex
	tiles    map[complication.TileID]*slot
	coord    Coordinator
	registry *complication.Registry
	log      logx.Logger
}

func New(registry *complication.Registry, log logx.Logger) *Host {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Host{
		tiles:    map[complication.TileID]*slot{},
		registry: registry,
		log:      log.With(logx.String("comp", "host")),
	}
}

// Attach binds the coordinator. The coordinator needs the host as its
// Platform, so it is bound after both exist.
func (h *Host) Attach(c Coordinator) {
	h.mu.Lock()
	h.coord = c
	h.mu.Unlock()
}

func (h *Host) coordinator() (Coordinator, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.coord == nil {
		return nil, ErrDetached
	}
	return h.coord, nil
}

// AddTile places a tile, activates it and asks for its first payload.
func (h *Host) AddTile(ctx context.Context, t Tile) error {
	c, err := h.coordinator()
	if err != nil {
		return err
	}
	reg, err := h.registry.Registration(t.ID, t.Kind)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.tiles[t.ID] = &slot{Tile: t}
	h.mu.Unlock()

	if err := c.Activate(ctx, reg); err != nil {
		return zerr.With(zerr.Wrap(err, "activate tile"), "tile", int(t.ID))
	}
	h.log.Info("tile added", logx.Int("tile", int(t.ID)), logx.String("kind", string(t.Kind)), logx.String("type", t.Type.String()))
	return c.Update(ctx, t.ID, t.Type)
}

// RemoveTile deactivates and forgets a tile.
func (h *Host) RemoveTile(ctx context.Context, id complication.TileID) error {
	c, err := h.coordinator()
	if err != nil {
		return err
	}
	h.mu.Lock()
	_, ok := h.tiles[id]
	delete(h.tiles, id)
	h.mu.Unlock()
	if !ok {
		return zerr.With(zerr.Wrap(ErrUnknownTile, "remove tile"), "tile", int(id))
	}
	h.log.Info("tile removed", logx.Int("tile", int(id)))
	return c.Deactivate(ctx, id)
}

// Tiles lists the placed tiles ordered by id.
func (h *Host) Tiles() []Tile {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Tile, 0, len(h.tiles))
	for _, s := range h.tiles {
		out = append(out, s.Tile)
	}
	slices.SortFunc(out, func(a, b Tile) int { return int(a.ID) - int(b.ID) })
	return out
}

// Payload returns what the tile currently shows.
func (h *Host) Payload(id complication.TileID) (*complication.Payload, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.tiles[id]
	if !ok || s.payload == nil {
		return nil, false
	}
	return s.payload, true
}

func (h *Host) Stats(id complication.TileID) Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.tiles[id]
	if !ok {
		return Stats{}
	}
	return Stats{Updates: s.updates, Skipped: s.skipped}
}

// Tap returns the action bound to the tile's current payload.
func (h *Host) Tap(id complication.TileID) (complication.TapAction, error) {
	p, ok := h.Payload(id)
	if !ok {
		return complication.TapAction{}, zerr.With(zerr.Wrap(ErrUnknownTile, "tap"), "tile", int(id))
	}
	a := p.Tap
	switch a.Kind {
	case complication.ActionWarningSync:
		h.log.Warn("no data from phone", logx.Int("tile", int(id)), logx.Time("last_sync", a.Since))
	case complication.ActionWarningOld:
		h.log.Warn("reading is old", logx.Int("tile", int(id)), logx.Time("reading_at", a.Since))
	default:
		h.log.Info("tile tapped", logx.Int("tile", int(id)), logx.String("action", a.Kind.String()))
	}
	return a, nil
}

// UpdateTileData implements complication.Platform.
func (h *Host) UpdateTileData(id complication.TileID, p *complication.Payload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.tiles[id]
	if !ok {
		h.log.Debug("payload for removed tile", logx.Int("tile", int(id)))
		return
	}
	s.payload = p
	s.updates++
}

// NoUpdateRequired implements complication.Platform.
func (h *Host) NoUpdateRequired(id complication.TileID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.tiles[id]; ok {
		s.skipped++
	}
}

// RequestRefreshAll implements complication.Platform by asking the
// coordinator for every tile of kind.
func (h *Host) RequestRefreshAll(kind complication.Kind) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	h.refresh(ctx, func(t Tile) bool { return t.Kind == kind })
}

// Poll asks for a fresh payload for every tile.
func (h *Host) Poll(ctx context.Context) error {
	return h.refresh(ctx, func(Tile) bool { return true })
}

func (h *Host) refresh(ctx context.Context, match func(Tile) bool) error {
	c, err := h.coordinator()
	if err != nil {
		return err
	}
	var errs []error
	for _, t := range h.Tiles() {
		if !match(t) {
			continue
		}
		if err := c.Update(ctx, t.ID, t.Type); err != nil {
			h.log.Warn("tile update failed", logx.Int("tile", int(t.ID)), logx.Err(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StartPoll registers the periodic poll with s. An empty spec uses DefaultPoll.
func (h *Host) StartPoll(s Scheduler, spec string) error {
	if spec == "" {
		spec = DefaultPoll
	}
	if err := s.AddSchedule(pollTask, spec, callTimeout, h.Poll); err != nil {
		return zerr.With(zerr.Wrap(err, "host poll"), "spec", spec)
	}
	h.log.Info("host poll scheduled", logx.String("spec", spec))
	return nil
}

// StopPoll removes the poll job.
func (h *Host) StopPoll(s Scheduler) { s.Remove(pollTask) }
