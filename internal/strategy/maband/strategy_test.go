package maband

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
	assert.Equal(t, "maband", strat.Name())
	assert.Equal(t, 3, strat.Lookback())

	p := closePanel(t, []float64{10, 10, 10, 20, 5})
	signals, err := strat.Signals(p)
	require.NoError(t, err)

	// The band is the prior period's trailing mean, so the first
	// window+1 rows have no signal.
	assert.True(t, math.IsNaN(signals.At(0, 0)))
	assert.True(t, math.IsNaN(signals.At(1, 0)))
	assert.Equal(t, 0.0, signals.At(2, 0), "close equal to band is not above it")
	assert.Equal(t, 1.0, signals.At(3, 0))
	assert.Equal(t, 0.0, signals.At(4, 0))
}

func TestNew_DefaultWindow(t *testing.T) {
	strat, err := New(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindow+1, strat.Lookback())
}

func TestFromParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		window int
	}{
		{"int", map[string]any{"window": 10}, 10},
		{"float from yaml", map[string]any{"window": 10.0}, 10},
		{"fractional ignored", map[string]any{"window": 10.5}, DefaultWindow},
		{"missing", map[string]any{}, DefaultWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strat, err := FromParams(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.window+1, strat.Lookback())
		})
	}
}
