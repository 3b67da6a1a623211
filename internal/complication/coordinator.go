package complication

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/zerr"

	"tilesync/internal/eventbus"
	"tilesync/internal/storage"
	logx "tilesync/pkg/logx"
)

var (
	ErrStopped = zerr.New("coordinator stopped")
	ErrRunning = zerr.New("coordinator already running")
	ErrBadDeps = zerr.New("coordinator dependency missing")
)

const inboxSize = 64

// Deps are the collaborators of a Coordinator. Clock and Log are optional.
type Deps struct {
	Store     storage.Store
	Scheduler Scheduler
	Limiter   Limiter
	Bus       eventbus.Bus
	Platform  Platform
	Registry  *Registry
	Clock     clockwork.Clock
	Log       logx.Logger
}

type Coordinator struct {
	log      logx.Logger
	clock    clockwork.Clock
	persist  *persistence
	sched    Scheduler
	limiter  Limiter
	bus      eventbus.Bus
	platform Platform
	registry *Registry
	cfg      atomic.Pointer[Config]
	drops    *logx.Throttle

	inbox    chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	running  atomic.Bool

	// Owned by the Run goroutine.
	ctx    context.Context
	events <-chan eventbus.Event
	unsub  func()
	// tiles mirrors the registrations activated by this process; it answers
	// when the store cannot.
	tiles map[TileID]Registration
}

func New(cfg Config, d Deps) (*Coordinator, error) {
	switch {
	case d.Store == nil:
		return nil, missingDep("store")
	case d.Scheduler == nil:
		return nil, missingDep("scheduler")
	case d.Limiter == nil:
		return nil, missingDep("limiter")
	case d.Bus == nil:
		return nil, missingDep("bus")
	case d.Platform == nil:
		return nil, missingDep("platform")
	case d.Registry == nil:
		return nil, missingDep("registry")
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	log := d.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "coordinator"))

	c := &Coordinator{
		log:      log,
		clock:    d.Clock,
		persist:  newPersistence(d.Store, log),
		sched:    d.Scheduler,
		limiter:  d.Limiter,
		bus:      d.Bus,
		platform: d.Platform,
		registry: d.Registry,
		drops:    logx.NewThrottle(time.Minute),
		inbox:    make(chan func(), inboxSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		tiles:    map[TileID]Registration{},
	}
	c.Apply(cfg)
	return c, nil
}

func missingDep(name string) error {
	return zerr.With(zerr.Wrap(ErrBadDeps, "new coordinator"), "dep", name)
}

// Apply swaps the timings. Pending timers keep their delay; the next arming
// uses the new values.
func (c *Coordinator) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	c.cfg.Store(&cfg)
}

func (c *Coordinator) config() Config { return *c.cfg.Load() }

// Run owns the coordinator state until ctx is cancelled or Close is called.
// It returns nil on a clean stop.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(c.done)

	c.ctx = ctx
	// Registrations from a previous process are not live; the host activates
	// its tiles again.
	if n := c.persist.purge(ctx); n > 0 {
		c.log.Info("dropped stale registrations", logx.Int("count", n))
	}
	c.log.Info("coordinator started", logx.Duration("sweep", c.config().SweepPeriod))
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case <-c.stop:
			c.shutdown()
			return nil
		case fn := <-c.inbox:
			fn()
		case e, ok := <-c.events:
			if !ok {
				c.events = nil
				continue
			}
			c.onDataUpdated(e)
		}
	}
}

// Close stops Run and waits for it, bounded by ctx.
func (c *Coordinator) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stop) })
	if !c.running.Load() {
		return nil
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

func (c *Coordinator) shutdown() {
	c.unsubscribe()
	c.sched.Cancel(TaskSweep)
	n := c.sched.CancelPrefix(TaskUpdatePrefix)
	c.log.Info("coordinator stopped", logx.Int("cancelled_updates", n))
}

// post queues fn for the Run goroutine. It is dropped once Run has stopped.
func (c *Coordinator) post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	case <-c.stop:
	}
}

// do runs fn on the Run goroutine and waits for it.
func (c *Coordinator) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case c.inbox <- task:
	case <-c.done:
		return ErrStopped
	case <-c.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-c.done:
		// Run may have drained the task just before stopping.
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) subscribe() {
	if c.unsub != nil {
		return
	}
	c.events, c.unsub = c.bus.Subscribe(eventBufferLength, eventbus.DataUpdated)
	c.log.Debug("subscribed to upstream data")
}

func (c *Coordinator) unsubscribe() {
	if c.unsub == nil {
		return
	}
	c.unsub()
	c.unsub = nil
	c.events = nil
	c.log.Debug("unsubscribed from upstream data")
}
