package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilesync/internal/complication"
	"tilesync/internal/complication/providers"
	"tilesync/internal/config"
	"tilesync/internal/display"
	"tilesync/internal/host"
)

const appYAML = `
logging:
  level: error
host:
  poll: "@every 1m"
  tiles:
    - {id: 1, kind: sgv, data_type: short_text}
    - {id: 2, kind: iob, data_type: long_text}
`

func newTestApp(t *testing.T, body string) *App {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tilesync.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	a, err := NewApp(p, Options{NoWatch: true})
	require.NoError(t, err)
	return a
}

func stop(t *testing.T, a *App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, a.Stop(ctx, StopSignal))
}

func TestNewAppMissingConfig(t *testing.T) {
	_, err := NewApp(filepath.Join(t.TempDir(), "absent.yaml"), Options{})
	assert.Error(t, err)
}

func TestAppServesTiles(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a := newTestApp(t, appYAML)
		require.NoError(t, a.Start(context.Background()))
		defer stop(t, a)

		assert.Equal(t, []host.Tile{
			{ID: 1, Kind: providers.KindSGV, Type: complication.ShortText},
			{ID: 2, Kind: providers.KindIOB, Type: complication.LongText},
		}, a.Host().Tiles())

		snap := display.Snapshot{
			Glucose: display.Glucose{Value: "142", Delta: "-3", Timestamp: time.Now()},
			Status:  display.Status{IOBSum: "1.25"},
		}
		require.NoError(t, a.Receiver().Ingest(context.Background(), snap))
		time.Sleep(time.Second)
		synctest.Wait()

		p, ok := a.Host().Payload(1)
		require.True(t, ok)
		assert.Equal(t, "142", p.ShortText)

		p, ok = a.Host().Payload(2)
		require.True(t, ok)
		assert.Equal(t, "IOB 1.25", p.LongTitle)

		states, ok := a.tileStates().([]TileState)
		require.True(t, ok)
		require.Len(t, states, 2)
		assert.Equal(t, "142", states[0].Payload.ShortText)

		before := a.Host().Stats(1).Updates
		time.Sleep(time.Minute)
		synctest.Wait()
		assert.Greater(t, a.Host().Stats(1).Updates, before)

		active := map[string]int{}
		for _, s := range a.Supervised() {
			active[s.Name] = s.Active
		}
		assert.Equal(t, 1, active["coordinator"])
		assert.Equal(t, 1, active["config.reload"])
		assert.NotContains(t, active, "config.watch")
		assert.NoError(t, a.Err())
	})
}

func TestAppReconcilesTilesOnReload(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a := newTestApp(t, appYAML)
		require.NoError(t, a.Start(context.Background()))
		defer stop(t, a)

		oldCfg := a.cfgm.Get()
		next := *oldCfg
		next.Coordinator.Debounce = "1s"
		next.Host.Tiles = []config.TileConfig{
			{ID: 1, Kind: "sgv", DataType: "short_text"},
			{ID: 3, Kind: "brcobiob", DataType: "short_text"},
		}
		require.NoError(t, a.validate(context.Background(), &next))
		a.applyConfig(context.Background(), oldCfg, &next)

		assert.Equal(t, []host.Tile{
			{ID: 1, Kind: providers.KindSGV, Type: complication.ShortText},
			{ID: 3, Kind: providers.KindBrCobIob, Type: complication.ShortText},
		}, a.Host().Tiles())

		regs, err := a.Coordinator().Registrations(context.Background())
		require.NoError(t, err)
		ids := make([]complication.TileID, 0, len(regs))
		for _, r := range regs {
			ids = append(ids, r.ID)
		}
		assert.ElementsMatch(t, []complication.TileID{1, 3}, ids)
	})
}

func TestAppRejectsUnknownKind(t *testing.T) {
	a := newTestApp(t, appYAML)
	bad := *a.cfgm.Get()
	bad.Host.Tiles = []config.TileConfig{{ID: 9, Kind: "weather"}}
	assert.ErrorIs(t, a.validate(context.Background(), &bad), complication.ErrUnknownProvider)

	bad = *a.cfgm.Get()
	bad.Host.Poll = "every so often"
	assert.Error(t, a.validate(context.Background(), &bad))

	bad = *a.cfgm.Get()
	bad.Scheduler.Timezone = "Mars/Olympus"
	assert.ErrorIs(t, a.validate(context.Background(), &bad), config.ErrInvalid)
	require.NoError(t, a.store.Close())
}

func TestMapStorageConfig(t *testing.T) {
	sc, err := mapStorageConfig(&config.Config{Storage: config.StorageConfig{Driver: " SQLite ", Path: "x.db"}})
	require.NoError(t, err)
	assert.Equal(t, time.Second, sc.BusyTimeout)
	assert.Equal(t, "sqlite", sc.Driver)

	sc, err = mapStorageConfig(&config.Config{})
	require.NoError(t, err)
	assert.Equal(t, "memory", sc.Driver)

	_, err = mapStorageConfig(&config.Config{Storage: config.StorageConfig{Driver: "redis"}})
	assert.Error(t, err)
}
