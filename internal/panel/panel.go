// Package panel holds the aligned collection of field frames that one
// strategy evaluation runs over. A panel is built once per evaluation
// and immutable afterwards; concurrent evaluations never share one.
package panel

import (
	"time"

	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/frame"
)

// Panel maps field names ("close", "open", "volume") to frames that are
// guaranteed to share one date index and instrument column set.
type Panel struct {
	fields map[string]*frame.Frame
	order  []string // Field insertion order, for display only
	shape  *frame.Frame
}

// Align builds a Panel from named frames, verifying the cross-field
// shape invariant. Field order follows the order slice; any frame whose
// dates or instruments differ from the first fails with ErrAlignment.
func Align(order []string, fields map[string]*frame.Frame) (*Panel, error) {
	if len(order) == 0 {
		return nil, core.Errorf(core.ErrAlignment, "panel has no fields")
	}
	var shape *frame.Frame
	for _, name := range order {
		f, ok := fields[name]
		if !ok || f == nil {
			return nil, core.Errorf(core.ErrAlignment, "field %s has no frame", name)
		}
		if shape == nil {
			shape = f
			continue
		}
		if !shape.SameShape(f) {
			return nil, core.Errorf(core.ErrAlignment, "field %s does not match field %s", name, order[0])
		}
	}
	p := &Panel{
		fields: make(map[string]*frame.Frame, len(order)),
		order:  append([]string(nil), order...),
		shape:  shape,
	}
	for _, name := range order {
		p.fields[name] = fields[name]
	}
	return p, nil
}

// Field returns the frame for name, or ErrMissingField.
func (p *Panel) Field(name string) (*frame.Frame, error) {
	f, ok := p.fields[name]
	if !ok {
		return nil, core.Errorf(core.ErrMissingField, "%s", name)
	}
	return f, nil
}

// Fields returns the field names in insertion order.
func (p *Panel) Fields() []string {
	return append([]string(nil), p.order...)
}

// Dates returns the shared date index.
func (p *Panel) Dates() []time.Time { return p.shape.Dates() }

// Instruments returns the shared instrument columns.
func (p *Panel) Instruments() []string { return p.shape.Instruments() }

// NumDates returns the length of the shared date index.
func (p *Panel) NumDates() int { return p.shape.NumDates() }

// Matches reports whether f shares the panel's alignment. Every stage
// output must satisfy this.
func (p *Panel) Matches(f *frame.Frame) bool {
	return f != nil && p.shape.SameShape(f)
}

// Truncate returns a new panel restricted to dates on or after from.
func (p *Panel) Truncate(from time.Time) (*Panel, error) {
	fields := make(map[string]*frame.Frame, len(p.order))
	for name, f := range p.fields {
		fields[name] = f.Truncate(from)
	}
	return Align(p.order, fields)
}
