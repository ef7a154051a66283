package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/frame"
	"github.com/newthinker/lunar/internal/panel"
	"github.com/newthinker/lunar/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	panel *panel.Panel
	err   error
}

func (s *stubProvider) FetchPanel(_ context.Context, _ core.DataRequest) (*panel.Panel, error) {
	return s.panel, s.err
}

func testDates(n int) []time.Time {
	out := make([]time.Time, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = base.AddDate(0, 0, i)
	}
	return out
}

func closePanel(t *testing.T, instruments []string, values [][]float64) *panel.Panel {
	t.Helper()
	closes, err := frame.New(testDates(len(values)), instruments, values)
	require.NoError(t, err)
	p, err := panel.Align([]string{core.FieldClose}, map[string]*frame.Frame{core.FieldClose: closes})
	require.NoError(t, err)
	return p
}

func upStrategy(t *testing.T) pipeline.Strategy {
	t.Helper()
	strat, err := pipeline.FromSpec(pipeline.Spec{
		Name:     "up",
		Lookback: 1,
		SignalFn: func(_ *frame.Frame, p *panel.Panel) (*frame.Frame, error) {
			closes, err := p.Field(core.FieldClose)
			if err != nil {
				return nil, err
			}
			return closes.Gt(closes.Shift(1))
		},
	})
	require.NoError(t, err)
	return strat
}

func testRequest() core.DataRequest {
	return core.DataRequest{
		Universe: []string{"A", "B"},
		Fields:   []string{core.FieldClose},
		Start:    testDates(5)[0],
		End:      testDates(5)[4],
		Interval: "1d",
	}
}

func TestRun(t *testing.T) {
	p := closePanel(t, []string{"A", "B"}, [][]float64{
		{10, 20}, {11, 19}, {12, 21}, {11, 22}, {13, 22},
	})
	runner := New(&stubProvider{panel: p}, nil, nil)

	res, err := runner.Run(context.Background(), upStrategy(t), testRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "up", res.Strategy)
	assert.Equal(t, testRequest().Universe, res.Request.Universe)
	assert.Equal(t, 3, res.Stats.Periods)

	// Every intermediate frame is retained for audit.
	require.NotNil(t, res.Pipeline)
	assert.True(t, p.Matches(res.Pipeline.Signals))
	assert.True(t, p.Matches(res.Pipeline.Weights))
	assert.True(t, p.Matches(res.Pipeline.Positions))
	assert.True(t, p.Matches(res.Pipeline.Returns))
}

func TestRun_ProviderFailure(t *testing.T) {
	cause := errors.New("feed down")
	runner := New(&stubProvider{err: cause}, nil, nil)

	_, err := runner.Run(context.Background(), upStrategy(t), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDataUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestTrade(t *testing.T) {
	p := closePanel(t, []string{"A", "B"}, [][]float64{
		{10, 20}, {11, 19}, {12, 21}, {11, 22}, {13, 22},
	})
	runner := New(&stubProvider{panel: p}, nil, nil)

	batch, err := runner.Trade(context.Background(), upStrategy(t), testRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, batch.RunID)
	assert.Equal(t, "up", batch.Strategy)
	assert.Equal(t, testDates(5)[4], batch.AsOf)

	// A rose into the final date, B did not: all capital targets A, and
	// B carries an explicit zero rather than being omitted.
	require.Len(t, batch.Orders, 2)
	assert.Equal(t, core.Order{Instrument: "A", TargetWeight: 1}, batch.Orders[0])
	assert.Equal(t, core.Order{Instrument: "B", TargetWeight: 0}, batch.Orders[1])
}

func TestTrade_MatchesHistoricalFinalWeights(t *testing.T) {
	p := closePanel(t, []string{"A", "B"}, [][]float64{
		{10, 20}, {11, 19}, {12, 21}, {11, 22}, {13, 23},
	})
	runner := New(&stubProvider{panel: p}, nil, nil)
	strat := upStrategy(t)

	res, err := runner.Run(context.Background(), strat, testRequest())
	require.NoError(t, err)
	batch, err := runner.Trade(context.Background(), strat, testRequest())
	require.NoError(t, err)

	// Live mode is the historical pipeline's final weight row, nothing else.
	last := res.Pipeline.Weights.LastRow()
	require.Len(t, batch.Orders, len(last))
	for j, o := range batch.Orders {
		assert.InDelta(t, last[j], o.TargetWeight, 1e-12)
	}
}

func TestTrade_InsufficientHistory(t *testing.T) {
	p := closePanel(t, []string{"A"}, [][]float64{{10}, {11}})
	runner := New(&stubProvider{panel: p}, nil, nil)

	strat, err := pipeline.FromSpec(pipeline.Spec{
		Name:     "deep",
		Lookback: 5,
		SignalFn: func(_ *frame.Frame, p *panel.Panel) (*frame.Frame, error) {
			return p.Field(core.FieldClose)
		},
	})
	require.NoError(t, err)

	_, err = runner.Trade(context.Background(), strat, testRequest())
	assert.ErrorIs(t, err, core.ErrInsufficientHistory)
}

func TestTrade_MissingWeightsBecomeZeroTargets(t *testing.T) {
	p := closePanel(t, []string{"A", "B"}, [][]float64{
		{10, 20}, {11, 21}, {12, 22},
	})
	runner := New(&stubProvider{panel: p}, nil, nil)

	// Signal never resolves, so every weight stays missing.
	blind, err := pipeline.FromSpec(pipeline.Spec{
		Name:     "blind",
		Lookback: 0,
		SignalFn: func(_ *frame.Frame, p *panel.Panel) (*frame.Frame, error) {
			closes, err := p.Field(core.FieldClose)
			if err != nil {
				return nil, err
			}
			return closes.Shift(10), nil
		},
	})
	require.NoError(t, err)

	batch, err := runner.Trade(context.Background(), blind, testRequest())
	require.NoError(t, err)
	assert.True(t, batch.IsFlat(), "missing weights must flatten, not trade")
}
