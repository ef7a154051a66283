package pipeline

import (
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/frame"
	"github.com/newthinker/lunar/internal/panel"
)

// StageFunc is a single named stage over (input frame, panel). The
// signal stage ignores its input frame and reads the panel directly.
type StageFunc func(in *frame.Frame, p *panel.Panel) (*frame.Frame, error)

// Spec configures a strategy as a plain value holding its four stage
// functions. Nil stages fall back to the canonical defaults: equal
// weighting, one-period position lag, close-to-close gross returns.
type Spec struct {
	Name       string
	Lookback   int
	Allocation float64 // Scales weights; 0 means 1.0

	SignalFn   StageFunc
	WeightFn   StageFunc
	PositionFn StageFunc
	ReturnFn   StageFunc
}

type specStrategy struct {
	spec Spec
}

// FromSpec builds a Strategy from a Spec. The signal stage is required;
// the other three default to the canonical stages.
func FromSpec(spec Spec) (Strategy, error) {
	if spec.SignalFn == nil {
		return nil, core.Errorf(core.ErrConfigInvalid, "strategy %s has no signal stage", spec.Name)
	}
	if spec.Allocation == 0 {
		spec.Allocation = 1.0
	}
	if spec.WeightFn == nil {
		spec.WeightFn = func(signals *frame.Frame, p *panel.Panel) (*frame.Frame, error) {
			return EqualWeights(signals), nil
		}
	}
	if spec.PositionFn == nil {
		spec.PositionFn = func(weights *frame.Frame, p *panel.Panel) (*frame.Frame, error) {
			return LagPositions(weights, 1), nil
		}
	}
	if spec.ReturnFn == nil {
		spec.ReturnFn = func(positions *frame.Frame, p *panel.Panel) (*frame.Frame, error) {
			return GrossReturns(positions, p)
		}
	}
	return &specStrategy{spec: spec}, nil
}

func (s *specStrategy) Name() string  { return s.spec.Name }
func (s *specStrategy) Lookback() int { return s.spec.Lookback }

func (s *specStrategy) Signals(p *panel.Panel) (*frame.Frame, error) {
	return s.spec.SignalFn(nil, p)
}

func (s *specStrategy) Weights(signals *frame.Frame, p *panel.Panel) (*frame.Frame, error) {
	weights, err := s.spec.WeightFn(signals, p)
	if err != nil {
		return nil, err
	}
	if s.spec.Allocation != 1.0 {
		weights = weights.Scale(s.spec.Allocation)
	}
	return weights, nil
}

func (s *specStrategy) Positions(weights *frame.Frame, p *panel.Panel) (*frame.Frame, error) {
	return s.spec.PositionFn(weights, p)
}

func (s *specStrategy) Returns(positions *frame.Frame, p *panel.Panel) (*frame.Frame, error) {
	return s.spec.ReturnFn(positions, p)
}

// EqualWeights divides each signal by the sum of absolute signals on its
// date, so capital is split evenly across active signals. A date with
// zero total signal yields all-zero weights, not a division error; this
// is the one documented place a "no signal" row stays zero. NaN signals
// stay NaN and are excluded from the divisor.
func EqualWeights(signals *frame.Frame) *frame.Frame {
	return signals.DivRows(signals.RowSumAbs())
}

// LagPositions shifts weights forward by periods so the position held
// during t is the weight decided through t-periods. One period is the
// canonical no-look-ahead policy.
func LagPositions(weights *frame.Frame, periods int) *frame.Frame {
	return weights.Shift(periods)
}

// GrossReturns computes position(t) * pctChange(close)(t): the return
// realized over the period ending at t on the position held during it.
func GrossReturns(positions *frame.Frame, p *panel.Panel) (*frame.Frame, error) {
	closes, err := p.Field(core.FieldClose)
	if err != nil {
		return nil, err
	}
	return positions.Mul(closes.PctChange())
}
