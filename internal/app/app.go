package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/zerr"

	"tilesync/internal/complication"
	"tilesync/internal/complication/providers"
	"tilesync/internal/config"
	"tilesync/internal/eventbus"
	"tilesync/internal/host"
	"tilesync/internal/observability/debughttp"
	"tilesync/internal/ratelimit"
	"tilesync/internal/runtime/supervisor"
	"tilesync/internal/storage"
	"tilesync/internal/task/scheduler"
	"tilesync/internal/upstream"
	logx "tilesync/pkg/logx"
)

// Options tune NewApp. The zero value is what the binary uses.
type Options struct {
	Clock clockwork.Clock
	// NoWatch disables the config file watcher.
	NoWatch bool
}

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor
	opts Options

	log   logx.Logger
	logs  *logx.Service
	clock clockwork.Clock
	bus   eventbus.Bus
	store storage.Store

	sched    *scheduler.Service
	limiter  *ratelimit.Limiter
	registry *complication.Registry
	coord    *complication.Coordinator
	host     *host.Host
	recv     *upstream.Receiver
	debug    *debughttp.Server
}

func NewApp(cfgPath string, opts Options) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	coordCfg, err := mapCoordinatorConfig(cfg)
	if err != nil {
		return nil, err
	}
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	log.Info("storage opened", logx.String("driver", sc.Driver))

	bus := eventbus.New()
	sched := scheduler.New(scheduler.Config{
		Timezone:      cfg.Scheduler.Timezone,
		StartupSpread: cfg.Scheduler.StartupSpread,
	}, clock, log.With(logx.String("comp", "scheduler")))
	limiter := ratelimit.New(clock)

	registry := complication.NewRegistry()
	if err := providers.Register(registry, clock, log.With(logx.String("comp", "providers"))); err != nil {
		_ = store.Close()
		return nil, err
	}

	h := host.New(registry, log.With(logx.String("comp", "host")))
	coord, err := complication.New(coordCfg, complication.Deps{
		Store:     store,
		Scheduler: sched,
		Limiter:   limiter,
		Bus:       bus,
		Platform:  h,
		Registry:  registry,
		Clock:     clock,
		Log:       log,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	h.Attach(coord)

	recv := upstream.NewReceiver(store, bus, clock, log.With(logx.String("comp", "upstream")))

	a := &App{
		cfgm:     cfgm,
		opts:     opts,
		log:      log,
		logs:     logSvc,
		clock:    clock,
		bus:      bus,
		store:    store,
		sched:    sched,
		limiter:  limiter,
		registry: registry,
		coord:    coord,
		host:     h,
		recv:     recv,
		debug:    debughttp.New(mapDebugConfig(cfg), log),
	}
	a.debug.Handle("tiles", a.tileStates)
	a.debug.Handle("goroutines", func() any { return a.Supervised() })
	a.debug.Handle("schedules", func() any { return sched.Snapshot() })
	return a, nil
}

// TileState is the debug view of one placed tile.
type TileState struct {
	host.Tile
	Stats   host.Stats            `json:"stats"`
	Payload *complication.Payload `json:"payload,omitempty"`
}

func (a *App) tileStates() any {
	tiles := a.host.Tiles()
	out := make([]TileState, 0, len(tiles))
	for _, t := range tiles {
		p, _ := a.host.Payload(t.ID)
		out = append(out, TileState{Tile: t, Stats: a.host.Stats(t.ID), Payload: p})
	}
	return out
}

func (a *App) Host() *host.Host                       { return a.host }
func (a *App) Receiver() *upstream.Receiver           { return a.recv }
func (a *App) Coordinator() *complication.Coordinator { return a.coord }
func (a *App) Logger() logx.Logger                    { return a.log }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Supervised reports the state of the app goroutines.
func (a *App) Supervised() []supervisor.Stats {
	if a.sup == nil {
		return nil
	}
	return a.sup.Snapshot()
}

// validate rejects configs the running app could not apply.
func (a *App) validate(_ context.Context, cfg *config.Config) error {
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return zerr.With(zerr.Wrap(config.ErrInvalid, "scheduler.timezone"), "tz", tz)
		}
	}
	if p := strings.TrimSpace(cfg.Host.Poll); p != "" {
		if _, err := scheduler.ParseSchedule(p); err != nil {
			return zerr.With(zerr.Wrap(err, "host.poll"), "spec", p)
		}
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapCoordinatorConfig(cfg); err != nil {
		return err
	}
	if err := mapDebugConfig(cfg).Check(); err != nil {
		return err
	}
	_, err := mapTiles(cfg, a.registry)
	return err
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithClock(a.clock),
		supervisor.WithCancelOnError(true),
	)
	a.cfgm.SetLogger(a.log)
	a.cfgm.SetValidator(a.validate)

	cfg := a.cfgm.Get()
	if err := a.validate(ctx, cfg); err != nil {
		return err
	}
	tiles, err := mapTiles(cfg, a.registry)
	if err != nil {
		return err
	}

	a.sched.Start(a.sup.Context())
	a.sup.Go("coordinator", a.coord.Run)
	a.sup.GoRestart("upstream.resend", a.recv.Run, supervisor.WithRestartBackoff(time.Second, 30*time.Second))

	for _, t := range tiles {
		if err := a.host.AddTile(ctx, t); err != nil {
			return err
		}
	}
	if err := a.host.StartPoll(a.sched, cfg.Host.Poll); err != nil {
		return err
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := cfg
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				// Coalesce bursts: keep only the latest config.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.debug.Start(a.sup.Context())
	if !a.opts.NoWatch {
		a.sup.GoRestart("config.watch", a.cfgm.Watch, supervisor.WithRestartBackoff(time.Second, 30*time.Second))
	}

	a.log.Info("app started", logx.Int("tiles", len(tiles)))
	return nil
}

func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	ch := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(ch.Sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	a.log.Debug("config change summary", ch.Fields...)
	if ch.RestartRequired {
		a.log.Warn("storage config changed; restart required for changes to take effect")
	}

	if ch.Changed("logging") {
		a.logs.Apply(mapLoggingConfig(newCfg))
	}
	if ch.Changed("scheduler") {
		a.sched.Apply(scheduler.Config{
			Timezone:      newCfg.Scheduler.Timezone,
			StartupSpread: newCfg.Scheduler.StartupSpread,
		})
	}
	if ch.Changed("coordinator") {
		if cc, err := mapCoordinatorConfig(newCfg); err != nil {
			a.log.Warn("invalid coordinator config; keeping previous", logx.Err(err))
		} else {
			a.coord.Apply(cc)
		}
	}
	if ch.Changed("host") {
		a.applyHost(ctx, oldCfg, newCfg)
	}
	if ch.Changed("debug") {
		a.debug.Reconfigure(ctx, mapDebugConfig(newCfg))
	}
	a.log.Info("config reloaded", logx.String("changed", strings.Join(ch.Sections, ",")))
}

// applyHost reconciles placed tiles and the poll schedule with newCfg.
func (a *App) applyHost(ctx context.Context, oldCfg, newCfg *config.Config) {
	want, err := mapTiles(newCfg, a.registry)
	if err != nil {
		a.log.Warn("invalid host config; keeping previous", logx.Err(err))
		return
	}
	wanted := make(map[complication.TileID]host.Tile, len(want))
	for _, t := range want {
		wanted[t.ID] = t
	}
	placed := map[complication.TileID]bool{}
	for _, t := range a.host.Tiles() {
		if w, ok := wanted[t.ID]; ok && w == t {
			placed[t.ID] = true
			continue
		}
		if err := a.host.RemoveTile(ctx, t.ID); err != nil {
			a.log.Warn("remove tile failed", logx.Int("tile", int(t.ID)), logx.Err(err))
		}
	}
	for _, t := range want {
		if placed[t.ID] {
			continue
		}
		if err := a.host.AddTile(ctx, t); err != nil {
			a.log.Warn("add tile failed", logx.Int("tile", int(t.ID)), logx.Err(err))
		}
	}

	if oldCfg == nil || oldCfg.Host.Poll != newCfg.Host.Poll {
		a.host.StopPoll(a.sched)
		if err := a.host.StartPoll(a.sched, newCfg.Host.Poll); err != nil {
			a.log.Warn("host poll not rescheduled", logx.Err(err))
		}
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Bounded shutdown step; never extends the caller's deadline.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < max {
				max = rem
			}
		}
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- zerr.With(zerr.Wrap(supervisor.ErrPanic, "stop step"), "panic", fmt.Sprint(r))
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
			go func() {
				err := <-done
				if err != nil {
					a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err))
				}
			}()
		}
	}

	// The coordinator cancels its own deferred work on the way out, so it goes
	// before the scheduler.
	step("coordinator", 2*time.Second, a.coord.Close)
	step("host.poll", time.Second, func(context.Context) error { a.host.StopPoll(a.sched); return nil })
	step("debug", time.Second, func(c context.Context) error { a.debug.Stop(c); return nil })
	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("supervisor", 2*time.Second, a.sup.Stop)
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		return a.logs.Close()
	}
	return nil
}
