package providers

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilesync/internal/complication"
	"tilesync/internal/display"
	logx "tilesync/pkg/logx"
)

var now = time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)

func render(t *testing.T, kind complication.Kind, dt complication.DataType, snap display.Snapshot) *complication.Payload {
	t.Helper()
	reg := complication.NewRegistry()
	require.NoError(t, Register(reg, clockwork.NewFakeClockAt(now), logx.Nop()))
	p, ok := reg.Lookup(kind)
	require.True(t, ok)
	return p.Renderer.BuildPayload(dt, snap, complication.TapAction{Tile: 1, Provider: kind})
}

func TestRegisterAll(t *testing.T) {
	reg := complication.NewRegistry()
	require.NoError(t, Register(reg, nil, logx.Logger{}))
	assert.Equal(t, []complication.Kind{KindBrCobIob, KindIOB, KindSGV}, reg.Kinds())

	r, err := reg.Registration(5, KindSGV)
	require.NoError(t, err)
	assert.True(t, r.DependsOnSince)
	r, err = reg.Registration(6, KindBrCobIob)
	require.NoError(t, err)
	assert.False(t, r.DependsOnSince)

	assert.Error(t, Register(reg, nil, logx.Nop()), "second registration must collide")
}

func TestBrCobIob(t *testing.T) {
	tests := []struct {
		name      string
		status    display.Status
		wantText  string
		wantTitle string
	}{
		{"fits", display.Status{COB: "12g", IOBSum: "1.5U", CurrentBasal: "0.8U/h"}, "β0.8U/h", "12g 2U"},
		{"iob takes cob slack", display.Status{COB: "0g", IOBSum: "0.46U", CurrentBasal: "1U/h"}, "β1U/h", "0g .46U"},
		{"long cob", display.Status{COB: "123g", IOBSum: "12.35U", CurrentBasal: "0U/h"}, "β0U/h", "123 12U"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := render(t, KindBrCobIob, complication.ShortText, display.Snapshot{Status: tt.status})
			require.NotNil(t, p)
			assert.Equal(t, tt.wantText, p.ShortText)
			assert.Equal(t, tt.wantTitle, p.ShortTitle)
			assert.Equal(t, complication.TileID(1), p.Tap.Tile)
		})
	}

	assert.Nil(t, render(t, KindBrCobIob, complication.LongText, display.Snapshot{}))
}

func TestSGV(t *testing.T) {
	snap := display.Snapshot{Glucose: display.Glucose{
		Value: "120", Delta: "+3", AvgDelta: "+2", Timestamp: now.Add(-5 * time.Minute),
	}}

	p := render(t, KindSGV, complication.ShortText, snap)
	require.NotNil(t, p)
	assert.Equal(t, "120", p.ShortText)
	assert.Equal(t, "+3", p.ShortTitle)

	p = render(t, KindSGV, complication.LongText, snap)
	require.NotNil(t, p)
	assert.Equal(t, "120 +3", p.LongTitle)
	assert.Equal(t, "5' ago, avg +2", p.LongText)

	for _, tt := range []struct {
		g    display.Glucose
		want float64
	}{
		{display.Glucose{Value: "120"}, 120},
		{display.Glucose{Value: "LOW", Mgdl: 30}, 40},
		{display.Glucose{Value: "450"}, 400},
		{display.Glucose{Value: "???"}, 40},
	} {
		p = render(t, KindSGV, complication.RangedValue, display.Snapshot{Glucose: tt.g})
		require.NotNil(t, p)
		assert.Equal(t, tt.want, p.Value, "value %q", tt.g.Value)
		assert.Equal(t, 40.0, p.Min)
		assert.Equal(t, 400.0, p.Max)
	}

	assert.Nil(t, render(t, KindSGV, complication.SmallImage, snap))
}

func TestIOB(t *testing.T) {
	snap := display.Snapshot{Status: display.Status{IOBSum: "2.35U", IOBDetail: "(1.10|1.25)"}}

	p := render(t, KindIOB, complication.ShortText, snap)
	require.NotNil(t, p)
	assert.Equal(t, "2.35U", p.ShortText)
	assert.Equal(t, "IOB", p.ShortTitle)

	p = render(t, KindIOB, complication.LongText, snap)
	require.NotNil(t, p)
	assert.Equal(t, "IOB 2.35U", p.LongTitle)
	assert.Equal(t, "(1.10|1.25)", p.LongText)

	assert.Nil(t, render(t, KindIOB, complication.Icon, snap))
}
