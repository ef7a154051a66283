// Package pipeline applies the four-stage transformation from a price
// panel to realized gross returns: signals -> weights -> positions ->
// returns. Every stage is a pure, shape-preserving function over the
// whole panel; the orchestrator is the only place stages are sequenced
// and intermediates retained.
package pipeline

import (
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/frame"
	"github.com/newthinker/lunar/internal/panel"
)

// Strategy supplies the four stage capabilities the pipeline sequences.
// Implementations must be pure: no mutation of inputs, no hidden state,
// so that independent evaluations can run concurrently without locking.
type Strategy interface {
	Name() string

	// Lookback is the minimum number of trailing periods the signal
	// stage needs before it can emit a non-missing value.
	Lookback() int

	// Signals turns the panel into a per-date, per-instrument signal
	// (categorical -1/0/1 or a continuous score).
	Signals(p *panel.Panel) (*frame.Frame, error)

	// Weights converts signals into target capital allocations.
	Weights(signals *frame.Frame, p *panel.Panel) (*frame.Frame, error)

	// Positions converts target weights into the exposure actually held
	// per period. This is where signal/weight time is separated from
	// position/return time: the weight decided through t-1 becomes the
	// position during t.
	Positions(weights *frame.Frame, p *panel.Panel) (*frame.Frame, error)

	// Returns computes realized gross return per instrument per date
	// from the held positions.
	Returns(positions *frame.Frame, p *panel.Panel) (*frame.Frame, error)
}

// Result retains the final frame and every intermediate for audit.
type Result struct {
	Strategy  string
	Signals   *frame.Frame
	Weights   *frame.Frame
	Positions *frame.Frame
	Returns   *frame.Frame
}

// Run applies the strategy's stages in order over the panel, validating
// the shape invariant after each stage. A stage that changes the date
// index or instrument columns fails fast with ErrStageShape naming the
// stage.
func Run(p *panel.Panel, s Strategy) (*Result, error) {
	signals, err := s.Signals(p)
	if err != nil {
		return nil, err
	}
	if !p.Matches(signals) {
		return nil, core.Errorf(core.ErrStageShape, "signal stage of %s", s.Name())
	}

	weights, err := s.Weights(signals, p)
	if err != nil {
		return nil, err
	}
	if !p.Matches(weights) {
		return nil, core.Errorf(core.ErrStageShape, "weight stage of %s", s.Name())
	}

	positions, err := s.Positions(weights, p)
	if err != nil {
		return nil, err
	}
	if !p.Matches(positions) {
		return nil, core.Errorf(core.ErrStageShape, "position stage of %s", s.Name())
	}

	returns, err := s.Returns(positions, p)
	if err != nil {
		return nil, err
	}
	if !p.Matches(returns) {
		return nil, core.Errorf(core.ErrStageShape, "return stage of %s", s.Name())
	}

	return &Result{
		Strategy:  s.Name(),
		Signals:   signals,
		Weights:   weights,
		Positions: positions,
		Returns:   returns,
	}, nil
}
