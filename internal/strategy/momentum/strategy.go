// Package momentum implements a trailing-return sign strategy: long
// instruments whose close rose over the lookback period, short those
// that fell. Only the sign of the trailing return is used.
package momentum

import (
	"math"

	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/frame"
	"github.com/newthinker/lunar/internal/panel"
	"github.com/newthinker/lunar/internal/pipeline"
)

// DefaultWindow is used when the configured window is missing or invalid.
const DefaultWindow = 20

// New builds the strategy.
func New(window int) (pipeline.Strategy, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	return pipeline.FromSpec(pipeline.Spec{
		Name:     "momentum",
		Lookback: window + 1,
		SignalFn: func(_ *frame.Frame, p *panel.Panel) (*frame.Frame, error) {
			closes, err := p.Field(core.FieldClose)
			if err != nil {
				return nil, err
			}
			trailing, err := closes.Sub(closes.Shift(window))
			if err != nil {
				return nil, err
			}
			return trailing.Apply(func(v float64) float64 {
				switch {
				case math.IsNaN(v):
					return v
				case v > 0:
					return 1
				case v < 0:
					return -1
				default:
					return 0
				}
			}), nil
		},
	})
}

// FromParams builds the strategy from a config params map.
func FromParams(params map[string]any) (pipeline.Strategy, error) {
	window := DefaultWindow
	switch v := params["window"].(type) {
	case int:
		window = v
	case float64:
		if v > 0 && v == math.Trunc(v) {
			window = int(v)
		}
	}
	return New(window)
}
