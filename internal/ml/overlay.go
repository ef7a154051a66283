// Package ml plugs an externally trained predictive model into the
// signal stage. The core never loads, trains, or serializes models; it
// only calls an injected predict capability and enforces that the
// returned predictions share the panel's alignment.
package ml

import (
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/frame"
	"github.com/newthinker/lunar/internal/panel"
)

// FeatureSet is an ordered, named collection of feature frames, all
// sharing the source panel's alignment.
type FeatureSet struct {
	names  []string
	frames map[string]*frame.Frame
}

// NewFeatureSet builds a FeatureSet, verifying every feature frame is
// aligned with the panel it was derived from.
func NewFeatureSet(p *panel.Panel, names []string, frames map[string]*frame.Frame) (*FeatureSet, error) {
	for _, name := range names {
		f, ok := frames[name]
		if !ok {
			return nil, core.Errorf(core.ErrMissingField, "feature %s", name)
		}
		if !p.Matches(f) {
			return nil, core.Errorf(core.ErrStageShape, "feature %s", name)
		}
	}
	fs := &FeatureSet{
		names:  append([]string(nil), names...),
		frames: make(map[string]*frame.Frame, len(names)),
	}
	for _, name := range names {
		fs.frames[name] = frames[name]
	}
	return fs, nil
}

// Names returns the feature names in order.
func (fs *FeatureSet) Names() []string {
	return append([]string(nil), fs.names...)
}

// Feature returns the frame for name, or ErrMissingField.
func (fs *FeatureSet) Feature(name string) (*frame.Frame, error) {
	f, ok := fs.frames[name]
	if !ok {
		return nil, core.Errorf(core.ErrMissingField, "feature %s", name)
	}
	return f, nil
}

// Predictor is the capability boundary to an externally owned model.
// Implementations are injected at overlay construction, never looked up
// globally.
type Predictor interface {
	Predict(features *FeatureSet) (*frame.Frame, error)
}

// PredictorFunc adapts a function to the Predictor interface.
type PredictorFunc func(features *FeatureSet) (*frame.Frame, error)

// Predict calls fn.
func (fn PredictorFunc) Predict(features *FeatureSet) (*frame.Frame, error) {
	return fn(features)
}

// FeatureFunc derives features, and optionally target labels, from a
// panel. Targets are consumed only by external training collaborators;
// the pipeline itself never reads them and a nil target frame is fine.
type FeatureFunc func(p *panel.Panel) (*FeatureSet, *frame.Frame, error)

// SignalFunc turns a prediction frame into a signal frame.
type SignalFunc func(predictions *frame.Frame, p *panel.Panel) (*frame.Frame, error)

// Overlay chains feature extraction, model prediction, and signal
// derivation into one signal stage. The pipeline cannot tell an Overlay
// apart from a rule-based signal stage; both satisfy the same shape
// contract.
type Overlay struct {
	features  FeatureFunc
	predictor Predictor
	toSignals SignalFunc
}

// NewOverlay builds an Overlay from its three collaborators.
func NewOverlay(features FeatureFunc, predictor Predictor, toSignals SignalFunc) (*Overlay, error) {
	if features == nil || predictor == nil || toSignals == nil {
		return nil, core.Errorf(core.ErrConfigInvalid, "overlay requires features, predictor, and signal function")
	}
	return &Overlay{features: features, predictor: predictor, toSignals: toSignals}, nil
}

// Features derives the feature set and targets without predicting.
// External trainers call this to obtain labelled training data.
func (o *Overlay) Features(p *panel.Panel) (*FeatureSet, *frame.Frame, error) {
	return o.features(p)
}

// Signals satisfies the pipeline signal-stage contract: derive features,
// obtain predictions from the injected model, convert to signals. The
// prediction frame must share the panel's alignment.
func (o *Overlay) Signals(p *panel.Panel) (*frame.Frame, error) {
	features, _, err := o.features(p)
	if err != nil {
		return nil, err
	}

	predictions, err := o.predictor.Predict(features)
	if err != nil {
		return nil, err
	}
	if !p.Matches(predictions) {
		return nil, core.Errorf(core.ErrStageShape, "prediction frame")
	}

	return o.toSignals(predictions, p)
}
