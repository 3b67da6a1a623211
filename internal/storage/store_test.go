package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "tilesync/pkg/logx"
)

func openDrivers(t *testing.T) map[string]func() Store {
	t.Helper()
	dir := t.TempDir()
	open := func(cfg Config) func() Store {
		return func() Store {
			st, err := Open(cfg, logx.Nop())
			require.NoError(t, err)
			return st
		}
	}
	return map[string]func() Store{
		DriverMemory: open(Config{Driver: DriverMemory}),
		DriverFile:   open(Config{Driver: DriverFile, Path: filepath.Join(dir, "file", "tiles.json")}),
		DriverSQLite: open(Config{Driver: DriverSQLite, Path: filepath.Join(dir, "sqlite", "tiles.db")}),
	}
}

func TestStoreContract(t *testing.T) {
	for name, open := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := open()
			defer st.Close()

			v, err := st.GetString(ctx, "last_shown_since", "-")
			require.NoError(t, err)
			assert.Equal(t, "-", v)

			require.NoError(t, st.PutString(ctx, "last_shown_since", "3'"))
			require.NoError(t, st.PutString(ctx, "last_shown_since", "4'"))
			v, err = st.GetString(ctx, "last_shown_since", "-")
			require.NoError(t, err)
			assert.Equal(t, "4'", v)

			b, err := st.GetBool(ctx, "stale_reported", false)
			require.NoError(t, err)
			assert.False(t, b)
			require.NoError(t, st.PutBool(ctx, "stale_reported", true))
			b, err = st.GetBool(ctx, "stale_reported", false)
			require.NoError(t, err)
			assert.True(t, b)

			members, err := st.GetSet(ctx, "tiles")
			require.NoError(t, err)
			assert.Empty(t, members)

			require.NoError(t, st.AddToSet(ctx, "tiles", "tile_2"))
			require.NoError(t, st.AddToSet(ctx, "tiles", "tile_1"))
			require.NoError(t, st.AddToSet(ctx, "tiles", "tile_2"))
			members, err = st.GetSet(ctx, "tiles")
			require.NoError(t, err)
			assert.Equal(t, []string{"tile_1", "tile_2"}, members)

			require.NoError(t, st.RemoveFromSet(ctx, "tiles", "tile_2"))
			require.NoError(t, st.RemoveFromSet(ctx, "tiles", "tile_9"))
			members, err = st.GetSet(ctx, "tiles")
			require.NoError(t, err)
			assert.Equal(t, []string{"tile_1"}, members)

			require.NoError(t, st.Delete(ctx, "last_shown_since"))
			v, err = st.GetString(ctx, "last_shown_since", "-")
			require.NoError(t, err)
			assert.Equal(t, "-", v)
		})
	}
}

func TestGetBoolRejectsGarbage(t *testing.T) {
	for name, open := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := open()
			defer st.Close()

			require.NoError(t, st.PutString(ctx, "stale_reported", "maybe"))
			b, err := st.GetBool(ctx, "stale_reported", true)
			assert.ErrorIs(t, err, ErrBadValue)
			assert.True(t, b, "default is returned on a bad value")
		})
	}
}

func TestClosedStoreReportsErrClosed(t *testing.T) {
	for name, open := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := open()
			require.NoError(t, st.Close())

			v, err := st.GetString(ctx, "k", "def")
			assert.ErrorIs(t, err, ErrClosed)
			assert.Equal(t, "def", v)
			assert.ErrorIs(t, st.PutString(ctx, "k", "v"), ErrClosed)
		})
	}
}

func TestDurableDriversSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	cases := []Config{
		{Driver: DriverFile, Path: filepath.Join(dir, "tiles.json")},
		{Driver: DriverSQLite, Path: filepath.Join(dir, "tiles.db")},
	}
	for _, cfg := range cases {
		t.Run(cfg.Driver, func(t *testing.T) {
			ctx := context.Background()
			st, err := Open(cfg, logx.Nop())
			require.NoError(t, err)
			require.NoError(t, st.PutString(ctx, "tile_7", "sgv"))
			require.NoError(t, st.PutBool(ctx, "tile_7_since", true))
			require.NoError(t, st.AddToSet(ctx, "tiles", "tile_7"))
			require.NoError(t, st.AddToSet(ctx, "tiles", "tile_8"))
			require.NoError(t, st.RemoveFromSet(ctx, "tiles", "tile_8"))
			require.NoError(t, st.Close())

			st, err = Open(cfg, logx.Nop())
			require.NoError(t, err)
			defer st.Close()

			kind, err := st.GetString(ctx, "tile_7", "")
			require.NoError(t, err)
			assert.Equal(t, "sgv", kind)
			since, err := st.GetBool(ctx, "tile_7_since", false)
			require.NoError(t, err)
			assert.True(t, since)
			members, err := st.GetSet(ctx, "tiles")
			require.NoError(t, err)
			assert.Equal(t, []string{"tile_7"}, members)
		})
	}
}

func TestFileJournalReplayWithoutCompaction(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tiles.json")
	st, err := Open(Config{Driver: DriverFile, Path: path}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.PutString(ctx, "snapshot", `{"glucose":{}}`))

	// Simulate a crash: only the journal is on disk.
	fs := st.(*fileStore)
	require.NoError(t, fs.journal.Close())
	fs.journal = nil

	st, err = Open(Config{Driver: DriverFile, Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()
	v, err := st.GetString(ctx, "snapshot", "")
	require.NoError(t, err)
	assert.Equal(t, `{"glucose":{}}`, v)
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "redis"}, logx.Nop())
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = Open(Config{Driver: DriverFile}, logx.Nop())
	assert.ErrorIs(t, err, ErrPathRequired)

	_, err = Open(Config{Driver: DriverSQLite, Path: " "}, logx.Nop())
	assert.ErrorIs(t, err, ErrPathRequired)
}
