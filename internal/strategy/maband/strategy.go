// Package maband implements a moving-average band strategy in panel
// form: long any instrument whose close is above the trailing moving
// average of the previous window periods.
package maband

import (
	"math"

	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/frame"
	"github.com/newthinker/lunar/internal/panel"
	"github.com/newthinker/lunar/internal/pipeline"
)

// DefaultWindow is used when the configured window is missing or invalid.
const DefaultWindow = 50

// New builds the strategy. The moving average is shifted one period so
// the comparison only uses data through the prior close.
func New(window int) (pipeline.Strategy, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	return pipeline.FromSpec(pipeline.Spec{
		Name: "maband",
		// One extra period for the shift past the averaging window.
		Lookback: window + 1,
		SignalFn: func(_ *frame.Frame, p *panel.Panel) (*frame.Frame, error) {
			closes, err := p.Field(core.FieldClose)
			if err != nil {
				return nil, err
			}
			mavg := closes.RollingMean(window).Shift(1)
			return closes.Gt(mavg)
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
