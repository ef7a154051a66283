package momentum

import (
	"math"
	"testing"
	"time"

	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/frame"
	"github.com/newthinker/lunar/internal/panel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closePanel(t *testing.T, values []float64) *panel.Panel {
	t.Helper()
	dates := make([]time.Time, len(values))
	rows := make([][]float64, len(values))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		dates[i] = base.AddDate(0, 0, i)
		rows[i] = []float64{v}
	}
	closes, err := frame.New(dates, []string{"A"}, rows)
	require.NoError(t, err)
	p, err := panel.Align([]string{core.FieldClose}, map[string]*frame.Frame{core.FieldClose: closes})
	require.NoError(t, err)
	return p
}

func TestSignals(t *testing.T) {
	strat, err := New(2)
	require.NoError(t, err)
	assert.Equal(t, "momentum", strat.Name())
	assert.Equal(t, 3, strat.Lookback())

	p := closePanel(t, []float64{10, 11, 12, 11, 9})
	signals, err := strat.Signals(p)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(signals.At(0, 0)))
	assert.True(t, math.IsNaN(signals.At(1, 0)))
	assert.Equal(t, 1.0, signals.At(2, 0), "rose over the window")
	assert.Equal(t, 0.0, signals.At(3, 0), "flat over the window")
	assert.Equal(t, -1.0, signals.At(4, 0), "fell over the window")
}

func TestFromParams(t *testing.T) {
	strat, err := FromParams(map[string]any{"window": 5})
	require.NoError(t, err)
	assert.Equal(t, 6, strat.Lookback())

	strat, err = FromParams(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindow+1, strat.Lookback())
}
