package complication_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"tilesync/internal/complication"
	"tilesync/internal/complication/mocks"
	"tilesync/internal/display"
	"tilesync/internal/eventbus"
	"tilesync/internal/ratelimit"
	"tilesync/internal/storage"
	"tilesync/internal/task/scheduler"
	logx "tilesync/pkg/logx"
)

const (
	kindSGV complication.Kind = "sgv"
	kindIOB complication.Kind = "iob"
)

// hostLog is a Platform that records what the coordinator asked for.
type hostLog struct {
	mu        sync.Mutex
	refreshes []complication.Kind
	updates   map[complication.TileID][]*complication.Payload
	noUpdate  []complication.TileID
}

func newHostLog() *hostLog {
	return &hostLog{updates: map[complication.TileID][]*complication.Payload{}}
}

func (h *hostLog) UpdateTileData(id complication.TileID, p *complication.Payload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates[id] = append(h.updates[id], p)
}

func (h *hostLog) NoUpdateRequired(id complication.TileID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.noUpdate = append(h.noUpdate, id)
}

func (h *hostLog) RequestRefreshAll(kind complication.Kind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refreshes = append(h.refreshes, kind)
}

func (h *hostLog) refreshCount(kind complication.Kind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, k := range h.refreshes {
		if k == kind {
			n++
		}
	}
	return n
}

func (h *hostLog) allRefreshes() []complication.Kind {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]complication.Kind(nil), h.refreshes...)
}

func (h *hostLog) lastUpdate(id complication.TileID) *complication.Payload {
	h.mu.Lock()
	defer h.mu.Unlock()
	ps := h.updates[id]
	if len(ps) == 0 {
		return nil
	}
	return ps[len(ps)-1]
}

// echoRenderer shows the glucose value and keeps the tap action.
var echoRenderer = complication.RendererFunc(func(dt complication.DataType, snap display.Snapshot, tap complication.TapAction) *complication.Payload {
	return &complication.Payload{Type: dt, ShortText: snap.Glucose.Value, LongText: "BG " + snap.Glucose.Value, Tap: tap}
})

type harness struct {
	c     *complication.Coordinator
	sched *scheduler.Service
	lim   *ratelimit.Limiter
	store storage.Store
	bus   eventbus.Bus
}

func newHarness(t *testing.T, cfg complication.Config, platform complication.Platform, renderer complication.Renderer) *harness {
	t.Helper()
	store, err := storage.Open(storage.Config{Driver: storage.DriverMemory}, logx.Nop())
	require.NoError(t, err)
	return newHarnessOn(t, store, cfg, platform, renderer)
}

func newHarnessOn(t *testing.T, store storage.Store, cfg complication.Config, platform complication.Platform, renderer complication.Renderer) *harness {
	t.Helper()
	if renderer == nil {
		renderer = echoRenderer
	}
	reg := complication.NewRegistry()
	require.NoError(t, reg.Register(kindSGV, complication.Provider{Renderer: renderer, UsesSince: true}))
	require.NoError(t, reg.Register(kindIOB, complication.Provider{Renderer: renderer}))

	h := &harness{
		sched: scheduler.New(scheduler.Config{Timezone: "UTC"}, nil, logx.Nop()),
		lim:   ratelimit.New(nil),
		store: store,
		bus:   eventbus.New(),
	}
	var err error
	h.c, err = complication.New(cfg, complication.Deps{
		Store:     store,
		Scheduler: h.sched,
		Limiter:   h.lim,
		Bus:       h.bus,
		Platform:  platform,
		Registry:  reg,
		Log:       logx.Nop(),
	})
	require.NoError(t, err)
	return h
}

func (h *harness) start() {
	go func() { _ = h.c.Run(context.Background()) }()
}

func (h *harness) close(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.c.Close(ctx))
	h.sched.Stop(ctx)
	require.NoError(t, h.store.Close())
}

// seed persists a snapshot as the upstream receiver would.
func (h *harness) seed(t *testing.T, readingAt, updatedAt time.Time) {
	t.Helper()
	ctx := context.Background()
	raw, err := display.Snapshot{Glucose: display.Glucose{Value: "120", Timestamp: readingAt}, UpdatedAt: updatedAt}.Encode()
	require.NoError(t, err)
	require.NoError(t, h.store.PutString(ctx, storage.KeySnapshot, raw))
	require.NoError(t, h.store.PutString(ctx, storage.KeyDataUpdatedAt, strconv.FormatInt(updatedAt.UnixMilli(), 10)))
}

func (h *harness) staleReported(t *testing.T) bool {
	t.Helper()
	v, err := h.store.GetBool(context.Background(), storage.KeyStaleReported, false)
	require.NoError(t, err)
	return v
}

func (h *harness) activate(t *testing.T, id complication.TileID, kind complication.Kind, since bool) {
	t.Helper()
	require.NoError(t, h.c.Activate(context.Background(), complication.Registration{ID: id, Kind: kind, DependsOnSince: since}))
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := complication.New(complication.DefaultConfig(), complication.Deps{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, complication.ErrBadDeps))
}

func TestStaleReportedAfterThreshold(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		host := newHostLog()
		h := newHarness(t, complication.DefaultConfig(), host, nil)
		now := time.Now()
		h.seed(t, now, now)
		h.start()
		defer h.close(t)

		h.activate(t, 1, kindSGV, true)

		time.Sleep(11 * time.Minute)
		synctest.Wait()
		assert.False(t, h.staleReported(t))

		time.Sleep(2 * time.Minute)
		synctest.Wait()
		assert.True(t, h.staleReported(t))

		refreshes := host.allRefreshes()
		require.NotEmpty(t, refreshes)
		for _, k := range refreshes {
			assert.Equal(t, kindSGV, k)
		}
	})
}

func TestNoDataIsStaleAtFirstSweep(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, complication.DefaultConfig(), newHostLog(), nil)
		h.start()
		defer h.close(t)

		h.activate(t, 1, kindSGV, true)
		time.Sleep(complication.DefaultSweep - time.Second)
		synctest.Wait()
		assert.False(t, h.staleReported(t))

		time.Sleep(2 * time.Second)
		synctest.Wait()
		assert.True(t, h.staleReported(t))
	})
}

func TestSinceChangeRefreshesOnlySinceDependentTiles(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		host := newHostLog()
		h := newHarness(t, complication.DefaultConfig(), host, nil)
		now := time.Now()
		h.seed(t, now, now)
		h.start()
		defer h.close(t)

		h.activate(t, 1, kindSGV, true)
		h.activate(t, 2, kindIOB, false)

		time.Sleep(3*time.Minute + 10*time.Second)
		synctest.Wait()

		assert.Equal(t, 1, host.refreshCount(kindIOB), "activation only")
		assert.GreaterOrEqual(t, host.refreshCount(kindSGV), 4)
	})
}

func TestBurstOfDataUpdatesCollapses(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		host := newHostLog()
		h := newHarness(t, complication.DefaultConfig(), host, nil)
		now := time.Now()
		h.seed(t, now, now)
		h.start()
		defer h.close(t)

		h.activate(t, 1, kindSGV, true)

		time.Sleep(100 * time.Millisecond)
		h.bus.Publish(eventbus.Event{Type: eventbus.DataUpdated})
		time.Sleep(200 * time.Millisecond)
		h.bus.Publish(eventbus.Event{Type: eventbus.DataUpdated})

		time.Sleep(600 * time.Millisecond)
		synctest.Wait()
		assert.Zero(t, host.refreshCount(kindSGV), "still debouncing at 900ms")

		time.Sleep(time.Second)
		synctest.Wait()
		assert.Equal(t, 1, host.refreshCount(kindSGV))
	})
}

func TestSweepBudgetDoesNotKillSweep(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		cfg := complication.DefaultConfig()
		cfg.SweepPeriod = time.Second
		cfg.SweepLimit = ratelimit.Window{Window: 5 * time.Second, Max: 2}

		h := newHarness(t, cfg, newHostLog(), nil)
		now := time.Now()
		h.seed(t, now, now)
		h.start()
		defer h.close(t)

		h.activate(t, 1, kindSGV, true)

		time.Sleep(4*time.Second + 500*time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 2, h.lim.Count(complication.LimitKeySweep, 5*time.Second))
		_, pending := h.sched.Pending(complication.TaskSweep)
		assert.True(t, pending)

		time.Sleep(15 * time.Second)
		synctest.Wait()
		assert.LessOrEqual(t, h.lim.Count(complication.LimitKeySweep, 5*time.Second), 2)
		_, pending = h.sched.Pending(complication.TaskSweep)
		assert.True(t, pending, "sweep must survive a rejected budget")
	})
}

func TestUpdateWithoutPayloadAnswersNoUpdateRequired(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		renderer := mocks.NewMockRenderer(ctrl)
		platform := mocks.NewMockPlatform(ctrl)

		wantTap := complication.TapAction{Kind: complication.ActionMenu, Tile: 1, Provider: kindSGV}
		renderer.EXPECT().BuildPayload(complication.ShortText, gomock.Any(), wantTap).Return(nil).Times(1)
		platform.EXPECT().NoUpdateRequired(complication.TileID(1)).Times(1)
		platform.EXPECT().UpdateTileData(gomock.Any(), gomock.Any()).Times(0)
		platform.EXPECT().RequestRefreshAll(gomock.Any()).AnyTimes()

		h := newHarness(t, complication.DefaultConfig(), platform, renderer)
		now := time.Now()
		h.seed(t, now, now)
		h.start()
		defer h.close(t)

		h.activate(t, 1, kindSGV, true)
		require.NoError(t, h.c.Update(context.Background(), 1, complication.ShortText))
	})
}

func TestUpdateUnknownTile(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		host := newHostLog()
		h := newHarness(t, complication.DefaultConfig(), host, nil)
		h.start()
		defer h.close(t)

		require.NoError(t, h.c.Update(context.Background(), 42, complication.ShortText))
		assert.Equal(t, []complication.TileID{42}, host.noUpdate)
	})
}

func TestUpdateIsIdempotent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		host := newHostLog()
		h := newHarness(t, complication.DefaultConfig(), host, nil)
		now := time.Now()
		h.seed(t, now, now)
		h.start()
		defer h.close(t)

		h.activate(t, 1, kindSGV, true)
		ctx := context.Background()
		require.NoError(t, h.c.Update(ctx, 1, complication.LongText))
		first := host.lastUpdate(1)
		require.NoError(t, h.c.Update(ctx, 1, complication.LongText))
		second := host.lastUpdate(1)

		require.NotNil(t, first)
		assert.Equal(t, first, second)
		assert.Equal(t, "BG 120", first.LongText)
		assert.Equal(t, complication.ActionMenu, first.Tap.Kind)
	})
}

func TestWarningPayloads(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		host := newHostLog()
		h := newHarness(t, complication.DefaultConfig(), host, nil)
		h.start()
		defer h.close(t)
		ctx := context.Background()
		h.activate(t, 1, kindSGV, true)

		// Nothing arrived for 20 minutes.
		lastSync := time.Now().Add(-20 * time.Minute)
		h.seed(t, lastSync, lastSync)

		require.NoError(t, h.c.Update(ctx, 1, complication.ShortText))
		p := host.lastUpdate(1)
		require.NotNil(t, p)
		assert.Equal(t, "20' old", p.ShortText)
		assert.Equal(t, complication.IconSyncAlert, p.Icon)
		assert.Equal(t, complication.ActionWarningSync, p.Tap.Kind)
		assert.True(t, p.Tap.Since.Equal(time.UnixMilli(lastSync.UnixMilli())), "since = %v", p.Tap.Since)

		require.NoError(t, h.c.Update(ctx, 1, complication.RangedValue))
		p = host.lastUpdate(1)
		assert.Equal(t, 0.0, p.Min)
		assert.Equal(t, 100.0, p.Max)
		assert.Equal(t, 0.0, p.Value)

		// The phone syncs but the sensor reading is 30 minutes old.
		h.seed(t, time.Now().Add(-30*time.Minute), time.Now())

		require.NoError(t, h.c.Update(ctx, 1, complication.LongText))
		p = host.lastUpdate(1)
		assert.Equal(t, "Reading is old", p.LongTitle)
		assert.Equal(t, "Last data 30' ago", p.LongText)
		assert.Equal(t, complication.ActionWarningOld, p.Tap.Kind)

		require.NoError(t, h.c.Update(ctx, 1, complication.Icon))
		p = host.lastUpdate(1)
		assert.Equal(t, complication.IconAlert, p.Icon)
		assert.Equal(t, complication.IconAlertBurnIn, p.BurnInIcon)

		// Large images have no warning form.
		require.NoError(t, h.c.Update(ctx, 1, complication.LargeImage))
		p = host.lastUpdate(1)
		assert.Equal(t, "120", p.ShortText)
		assert.Equal(t, complication.ActionMenu, p.Tap.Kind)
	})
}

func TestNoSyncWithoutAnyData(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		host := newHostLog()
		h := newHarness(t, complication.DefaultConfig(), host, nil)
		h.start()
		defer h.close(t)
		h.activate(t, 1, kindSGV, true)

		ctx := context.Background()
		require.NoError(t, h.c.Update(ctx, 1, complication.ShortText))
		p := host.lastUpdate(1)
		require.NotNil(t, p)
		assert.Equal(t, "!err!", p.ShortText)
		assert.True(t, p.Tap.Since.IsZero())

		require.NoError(t, h.c.Update(ctx, 1, complication.LongText))
		p = host.lastUpdate(1)
		assert.Equal(t, "No data from phone", p.LongTitle)
		assert.Equal(t, "Is the phone app running?", p.LongText)
	})
}

func TestRegistrationsTrackLifecycle(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		host := newHostLog()
		h := newHarness(t, complication.DefaultConfig(), host, nil)
		h.start()
		defer h.close(t)
		ctx := context.Background()

		h.activate(t, 3, kindIOB, false)
		h.activate(t, 1, kindSGV, true)
		h.activate(t, 2, kindSGV, true)
		// Re-activation overwrites.
		h.activate(t, 3, kindSGV, true)
		require.NoError(t, h.c.Deactivate(ctx, 2))

		regs, err := h.c.Registrations(ctx)
		require.NoError(t, err)
		assert.Equal(t, []complication.Registration{
			{ID: 1, Kind: kindSGV, DependsOnSince: true},
			{ID: 3, Kind: kindSGV, DependsOnSince: true},
		}, regs)
	})
}

func TestDeactivatingLastTileStopsEverything(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		host := newHostLog()
		h := newHarness(t, complication.DefaultConfig(), host, nil)
		now := time.Now()
		h.seed(t, now, now)
		h.start()
		defer h.close(t)
		ctx := context.Background()

		h.activate(t, 1, kindSGV, true)
		require.NoError(t, h.c.Deactivate(ctx, 1))

		_, pending := h.sched.Pending(complication.TaskSweep)
		assert.False(t, pending)
		_, pending = h.sched.Pending(complication.TaskUpdatePrefix + string(kindSGV))
		assert.False(t, pending)

		h.bus.Publish(eventbus.Event{Type: eventbus.DataUpdated})
		time.Sleep(time.Minute)
		synctest.Wait()
		assert.Empty(t, host.allRefreshes())
	})
}

func TestActivationRequestsResend(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, complication.DefaultConfig(), newHostLog(), nil)
		resend, unsub := h.bus.Subscribe(4, eventbus.ResendRequested)
		defer unsub()
		h.start()
		defer h.close(t)

		h.activate(t, 7, kindIOB, false)
		select {
		case e := <-resend:
			assert.Equal(t, complication.TileID(7), e.Data)
		default:
			t.Fatal("no resend request published")
		}
	})
}

func TestCallsAfterCloseFail(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, complication.DefaultConfig(), newHostLog(), nil)
		h.start()
		h.activate(t, 1, kindSGV, true)
		h.close(t)

		<-h.c.Done()
		err := h.c.Activate(context.Background(), complication.Registration{ID: 2, Kind: kindSGV})
		assert.True(t, errors.Is(err, complication.ErrStopped))
		assert.True(t, errors.Is(h.c.Run(context.Background()), complication.ErrRunning))
	})
}

func TestRateLimitBoundsRefreshes(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		host := newHostLog()
		h := newHarness(t, complication.DefaultConfig(), host, nil)
		now := time.Now()
		h.seed(t, now, now)
		h.start()
		defer h.close(t)

		h.activate(t, 1, kindSGV, true)
		// One data push per second for 10 seconds; each fires after the debounce.
		for i := 0; i < 10; i++ {
			time.Sleep(time.Second)
			h.bus.Publish(eventbus.Event{Type: eventbus.DataUpdated})
		}
		time.Sleep(time.Second)
		synctest.Wait()

		// 11 dispatches over ~11s against a budget of 2 per 5s.
		assert.LessOrEqual(t, host.refreshCount(kindSGV), 6)
		assert.GreaterOrEqual(t, host.refreshCount(kindSGV), 2)
	})
}
