// Package backtest runs the pipeline in its two modes: historical
// evaluation over the full date range, and live order generation from
// the most recent period. Both modes share one code path; live mode
// only changes how the final frame is consumed.
package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/logger"
	"github.com/newthinker/lunar/internal/metrics"
	"github.com/newthinker/lunar/internal/panel"
	"github.com/newthinker/lunar/internal/pipeline"
	"go.uber.org/zap"
)

// PanelProvider is the boundary to the external data collaborator.
// Failures are wrapped as ErrDataUnavailable and never retried here;
// retry policy belongs to the provider.
type PanelProvider interface {
	FetchPanel(ctx context.Context, req core.DataRequest) (*panel.Panel, error)
}

// Result is a historical run: the pipeline result plus run metadata and
// summary statistics over the portfolio return series.
type Result struct {
	RunID    string
	Strategy string
	Request  core.DataRequest
	Pipeline *pipeline.Result
	Stats    Stats
}

// Runner evaluates strategies. Each call owns its panel and frames
// exclusively, so independent runs can proceed concurrently with no
// locking.
type Runner struct {
	provider PanelProvider
	logger   *zap.Logger
	metrics  *metrics.Registry
}

// New creates a Runner. Logger and metrics may be nil.
func New(provider PanelProvider, logger *zap.Logger, reg *metrics.Registry) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{provider: provider, logger: logger, metrics: reg}
}

func (r *Runner) fetch(ctx context.Context, req core.DataRequest) (*panel.Panel, error) {
	p, err := r.provider.FetchPanel(ctx, req)
	if err != nil {
		return nil, core.WrapError(core.ErrDataUnavailable, err)
	}
	return p, nil
}

// Run evaluates the strategy over the full requested range and returns
// the retained frames and stats (HistoricalMode).
func (r *Runner) Run(ctx context.Context, strat pipeline.Strategy, req core.DataRequest) (*Result, error) {
	start := time.Now()

	p, err := r.fetch(ctx, req)
	if err != nil {
		r.observe("historical", strat.Name(), start, err)
		return nil, err
	}

	res, err := r.evaluate(p, strat)
	r.observe("historical", strat.Name(), start, err)
	if err != nil {
		return nil, err
	}
	res.Request = req

	logger.ForRun(r.logger, res.RunID).Info("backtest complete",
		zap.String("strategy", strat.Name()),
		zap.Int("dates", p.NumDates()),
		zap.Int("instruments", len(p.Instruments())),
		zap.Float64("total_return", res.Stats.TotalReturn),
	)
	return res, nil
}

// Trade evaluates the identical pipeline over data through "now" and
// emits the final period's target weights as an order batch (LiveMode).
// The batch is the position the backtest would hold on the next bar.
func (r *Runner) Trade(ctx context.Context, strat pipeline.Strategy, req core.DataRequest) (*core.OrderBatch, error) {
	start := time.Now()

	p, err := r.fetch(ctx, req)
	if err != nil {
		r.observe("live", strat.Name(), start, err)
		return nil, err
	}

	if p.NumDates() <= strat.Lookback() {
		err = core.Errorf(core.ErrInsufficientHistory,
			"%d dates available, lookback %d", p.NumDates(), strat.Lookback())
		r.observe("live", strat.Name(), start, err)
		return nil, err
	}

	res, err := r.evaluate(p, strat)
	r.observe("live", strat.Name(), start, err)
	if err != nil {
		return nil, err
	}

	batch := ordersFromWeights(res)
	if r.metrics != nil {
		r.metrics.RecordLiveOrders(strat.Name(), len(batch.Orders))
	}
	logger.ForRun(r.logger, batch.RunID).Info("order batch generated",
		zap.String("strategy", strat.Name()),
		zap.Time("as_of", batch.AsOf),
		zap.Int("orders", len(batch.Orders)),
	)
	return batch, nil
}

// evaluate runs the pipeline over an already-fetched panel and computes
// stats. Shared by both modes so their numeric behavior cannot diverge.
func (r *Runner) evaluate(p *panel.Panel, strat pipeline.Strategy) (*Result, error) {
	if r.metrics != nil {
		r.metrics.RecordPanel(p.NumDates(), len(p.Instruments()))
	}
	pres, err := pipeline.Run(p, strat)
	if err != nil {
		return nil, err
	}
	return &Result{
		RunID:    uuid.NewString(),
		Strategy: strat.Name(),
		Pipeline: pres,
		Stats:    CalculateStats(pres.Returns.SumRows()),
	}, nil
}

func (r *Runner) observe(mode, strategy string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.RecordEvaluation(mode, strategy, status, time.Since(start).Seconds())
}

// ordersFromWeights converts the final date's weight row into orders.
// Every instrument in the universe appears, including explicit zero
// targets for positions being flattened. NaN weights (inside the
// lookback window) become zero targets rather than silently traded.
func ordersFromWeights(res *Result) *core.OrderBatch {
	weights := res.Pipeline.Weights
	instruments := weights.Instruments()
	last := weights.LastRow()

	orders := make([]core.Order, len(instruments))
	for j, inst := range instruments {
		target := last[j]
		if target != target { // NaN
			target = 0
		}
		orders[j] = core.Order{Instrument: inst, TargetWeight: target}
	}

	dates := weights.Dates()
	return &core.OrderBatch{
		RunID:    res.RunID,
		Strategy: res.Strategy,
		AsOf:     dates[len(dates)-1],
		Orders:   orders,
	}
}
