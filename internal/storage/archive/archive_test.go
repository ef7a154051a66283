package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/newthinker/lunar/internal/backtest"
	"github.com/newthinker/lunar/internal/frame"
	"github.com/newthinker/lunar/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult(t *testing.T) *backtest.Result {
	t.Helper()
	ds := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	f, err := frame.New(ds, []string{"A"}, [][]float64{{1}, {0.5}})
	require.NoError(t, err)

	return &backtest.Result{
		RunID:    "run-1",
		Strategy: "up",
		Pipeline: &pipeline.Result{
			Strategy:  "up",
			Signals:   f,
			Weights:   f,
			Positions: f,
			Returns:   f,
		},
		Stats: backtest.Stats{Periods: 2, TotalReturn: 0.1},
	}
}

func TestSaveResult(t *testing.T) {
	store, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, SaveResult(ctx, store, testResult(t)))

	paths, err := store.List(ctx, "up/run-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"up/run-1/signals.csv",
		"up/run-1/weights.csv",
		"up/run-1/positions.csv",
		"up/run-1/returns.csv",
		"up/run-1/stats.json",
	}, paths)

	data, err := store.Read(ctx, "up/run-1/stats.json")
	require.NoError(t, err)
	var stats backtest.Stats
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, 2, stats.Periods)

	data, err = store.Read(ctx, "up/run-1/weights.csv")
	require.NoError(t, err)
	got, err := frame.UnmarshalCSV(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumDates())
}
