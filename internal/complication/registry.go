package complication

import (
	"slices"
	"strings"
	"sync"

	"go.trai.ch/zerr"

	"tilesync/internal/display"
)

var (
	ErrUnknownProvider   = zerr.New("unknown provider kind")
	ErrDuplicateProvider = zerr.New("provider kind already registered")
)

// RendererFunc adapts a function to Renderer.
type RendererFunc func(dt DataType, snap display.Snapshot, tap TapAction) *Payload

func (f RendererFunc) BuildPayload(dt DataType, snap display.Snapshot, tap TapAction) *Payload {
	return f(dt, snap, tap)
}

// Provider is one tile kind.
type Provider struct {
	Renderer Renderer
	// UsesSince marks tiles that show the "since" label and need a refresh
	// whenever it changes.
	UsesSince bool
	// Action is the tap action for fresh payloads.
	Action TapKind
}

// Registry maps provider kinds to providers.
type Registry struct {
	mu sync.RWMutex
	m  map[Kind]Provider
}

func NewRegistry() *Registry {
	return &Registry{m: map[Kind]Provider{}}
}

func (r *Registry) Register(kind Kind, p Provider) error {
	kind = Kind(strings.TrimSpace(string(kind)))
	if kind == "" || p.Renderer == nil {
		return zerr.With(zerr.Wrap(ErrUnknownProvider, "register provider"), "kind", string(kind))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[kind]; ok {
		return zerr.With(zerr.Wrap(ErrDuplicateProvider, "register provider"), "kind", string(kind))
	}
	r.m[kind] = p
	return nil
}

func (r *Registry) Lookup(kind Kind) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.m[kind]
	return p, ok
}

// Kinds lists registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Registration builds the activation record for a tile of the given kind.
func (r *Registry) Registration(id TileID, kind Kind) (Registration, error) {
	p, ok := r.Lookup(kind)
	if !ok {
		return Registration{}, zerr.With(zerr.Wrap(ErrUnknownProvider, "build registration"), "kind", string(kind))
	}
	return Registration{ID: id, Kind: kind, DependsOnSince: p.UsesSince}, nil
}
