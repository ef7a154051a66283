// Package frame provides the 2-D dates × instruments table that every
// pipeline stage consumes and produces. Missing values are NaN, never
// zero, and propagate through arithmetic.
package frame

import (
	"fmt"
	"math"
	"time"
)

// Frame is an immutable grid of float64 indexed by date (rows, ascending,
// unique) and instrument (columns, order-preserving). Operations return
// new frames; nothing mutates in place, so intermediates can be retained
// for audit without aliasing risk.
type Frame struct {
	dates       []time.Time
	instruments []string
	values      [][]float64 // [date][instrument]
}

// New creates a Frame, validating that dates are ascending and unique,
// instruments are unique, and values match the index dimensions.
func New(dates []time.Time, instruments []string, values [][]float64) (*Frame, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("dates must be ascending and unique: %s before %s",
				dates[i].Format("2006-01-02"), dates[i-1].Format("2006-01-02"))
		}
	}
	seen := make(map[string]bool, len(instruments))
	for _, inst := range instruments {
		if seen[inst] {
			return nil, fmt.Errorf("duplicate instrument: %s", inst)
		}
		seen[inst] = true
	}
	if len(values) != len(dates) {
		return nil, fmt.Errorf("got %d rows for %d dates", len(values), len(dates))
	}
	for i, row := range values {
		if len(row) != len(instruments) {
			return nil, fmt.Errorf("row %d has %d columns for %d instruments", i, len(row), len(instruments))
		}
	}
	f := &Frame{
		dates:       append([]time.Time(nil), dates...),
		instruments: append([]string(nil), instruments...),
		values:      make([][]float64, len(values)),
	}
	for i, row := range values {
		f.values[i] = append([]float64(nil), row...)
	}
	return f, nil
}

// Filled creates a Frame with every cell set to v.
func Filled(dates []time.Time, instruments []string, v float64) (*Frame, error) {
	values := make([][]float64, len(dates))
	for i := range values {
		row := make([]float64, len(instruments))
		for j := range row {
			row[j] = v
		}
		values[i] = row
	}
	return New(dates, instruments, values)
}

// Dates returns the date index.
func (f *Frame) Dates() []time.Time {
	return append([]time.Time(nil), f.dates...)
}

// Instruments returns the instrument columns.
func (f *Frame) Instruments() []string {
	return append([]string(nil), f.instruments...)
}

// NumDates returns the number of rows.
func (f *Frame) NumDates() int { return len(f.dates) }

// NumInstruments returns the number of columns.
func (f *Frame) NumInstruments() int { return len(f.instruments) }

// At returns the value at row i, column j.
func (f *Frame) At(i, j int) float64 { return f.values[i][j] }

// Date returns the date at row i.
func (f *Frame) Date(i int) time.Time { return f.dates[i] }

// Row returns a copy of row i.
func (f *Frame) Row(i int) []float64 {
	return append([]float64(nil), f.values[i]...)
}

// LastRow returns a copy of the final row, or nil if the frame is empty.
func (f *Frame) LastRow() []float64 {
	if len(f.values) == 0 {
		return nil
	}
	return f.Row(len(f.values) - 1)
}

// Column returns a copy of the values for one instrument, or an error if
// the instrument is not in the frame.
func (f *Frame) Column(instrument string) ([]float64, error) {
	for j, inst := range f.instruments {
		if inst == instrument {
			col := make([]float64, len(f.dates))
			for i := range f.values {
				col[i] = f.values[i][j]
			}
			return col, nil
		}
	}
	return nil, fmt.Errorf("no column %s", instrument)
}

// SameShape reports whether other has the identical date index and
// instrument columns, in the same order.
func (f *Frame) SameShape(other *Frame) bool {
	if other == nil || len(f.dates) != len(other.dates) || len(f.instruments) != len(other.instruments) {
		return false
	}
	for i := range f.dates {
		if !f.dates[i].Equal(other.dates[i]) {
			return false
		}
	}
	for j := range f.instruments {
		if f.instruments[j] != other.instruments[j] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	c, _ := New(f.dates, f.instruments, f.values)
	return c
}

// emptyLike returns a NaN-filled frame with f's index.
func (f *Frame) emptyLike() *Frame {
	out, _ := Filled(f.dates, f.instruments, math.NaN())
	return out
}

// Shift returns a frame with all rows moved forward n periods. Vacated
// rows are NaN, matching the missing-value convention: a shifted frame
// has no information for dates inside the shift window.
func (f *Frame) Shift(n int) *Frame {
	out := f.emptyLike()
	if n < 0 {
		n = 0
	}
	for i := n; i < len(f.dates); i++ {
		copy(out.values[i], f.values[i-n])
	}
	return out
}

// PctChange returns the period-over-period percentage change. The first
// row is NaN, as is any cell whose previous value is missing or zero.
func (f *Frame) PctChange() *Frame {
	out := f.emptyLike()
	for i := 1; i < len(f.dates); i++ {
		for j := range f.instruments {
			prev := f.values[i-1][j]
			curr := f.values[i][j]
			if math.IsNaN(prev) || math.IsNaN(curr) || prev == 0 {
				continue
			}
			out.values[i][j] = (curr - prev) / prev
		}
	}
	return out
}

// RollingMean returns the trailing window-period mean per column. Rows
// with fewer than window prior observations are NaN, and a NaN anywhere
// in the window makes the output NaN for that cell.
func (f *Frame) RollingMean(window int) *Frame {
	out := f.emptyLike()
	if window <= 0 {
		return out
	}
	for j := range f.instruments {
		for i := window - 1; i < len(f.dates); i++ {
			sum := 0.0
			ok := true
			for k := i - window + 1; k <= i; k++ {
				v := f.values[k][j]
				if math.IsNaN(v) {
					ok = false
					break
				}
				sum += v
			}
			if ok {
				out.values[i][j] = sum / float64(window)
			}
		}
	}
	return out
}

// Apply returns a frame with fn applied to every cell.
func (f *Frame) Apply(fn func(float64) float64) *Frame {
	out := f.emptyLike()
	for i := range f.values {
		for j := range f.values[i] {
			out.values[i][j] = fn(f.values[i][j])
		}
	}
	return out
}

// binary applies fn elementwise over two same-shaped frames. NaN in
// either operand yields NaN.
func (f *Frame) binary(other *Frame, fn func(a, b float64) float64) (*Frame, error) {
	if !f.SameShape(other) {
		return nil, fmt.Errorf("frames are not aligned")
	}
	out := f.emptyLike()
	for i := range f.values {
		for j := range f.values[i] {
			a, b := f.values[i][j], other.values[i][j]
			if math.IsNaN(a) || math.IsNaN(b) {
				continue
			}
			out.values[i][j] = fn(a, b)
		}
	}
	return out, nil
}

// Mul returns the elementwise product of two aligned frames.
func (f *Frame) Mul(other *Frame) (*Frame, error) {
	return f.binary(other, func(a, b float64) float64 { return a * b })
}

// Sub returns the elementwise difference of two aligned frames.
func (f *Frame) Sub(other *Frame) (*Frame, error) {
	return f.binary(other, func(a, b float64) float64 { return a - b })
}

// Gt returns 1 where f > other, 0 where not, NaN where either side is
// missing.
func (f *Frame) Gt(other *Frame) (*Frame, error) {
	return f.binary(other, func(a, b float64) float64 {
		if a > b {
			return 1
		}
		return 0
	})
}

// DivRows divides every cell in row i by divisors[i]. A zero divisor
// leaves the row unchanged rather than producing Inf; callers use this
// for per-date normalization where a zero divisor implies an all-zero
// row. NaN cells stay NaN.
func (f *Frame) DivRows(divisors []float64) *Frame {
	out := f.Clone()
	for i := range out.values {
		d := divisors[i]
		if d == 0 || math.IsNaN(d) {
			continue
		}
		for j := range out.values[i] {
			out.values[i][j] /= d
		}
	}
	return out
}

// Scale returns the frame with every cell multiplied by v.
func (f *Frame) Scale(v float64) *Frame {
	return f.Apply(func(x float64) float64 { return x * v })
}

// Truncate returns the frame restricted to dates on or after from.
func (f *Frame) Truncate(from time.Time) *Frame {
	start := 0
	for start < len(f.dates) && f.dates[start].Before(from) {
		start++
	}
	out, _ := New(f.dates[start:], f.instruments, f.values[start:])
	return out
}

// RowSumAbs returns, per date, the sum of absolute values across
// instruments. NaN cells are skipped; a row of only NaN sums to 0.
func (f *Frame) RowSumAbs() []float64 {
	sums := make([]float64, len(f.dates))
	for i := range f.values {
		for _, v := range f.values[i] {
			if !math.IsNaN(v) {
				sums[i] += math.Abs(v)
			}
		}
	}
	return sums
}

// SumRows collapses the frame to one value per date by summing across
// instruments, skipping NaN. A row of only NaN yields NaN, preserving
// the distinction between "no data" and a genuine zero.
func (f *Frame) SumRows() []float64 {
	sums := make([]float64, len(f.dates))
	for i := range f.values {
		sum := 0.0
		any := false
		for _, v := range f.values[i] {
			if !math.IsNaN(v) {
				sum += v
				any = true
			}
		}
		if any {
			sums[i] = sum
		} else {
			sums[i] = math.NaN()
		}
	}
	return sums
}

// Equal reports whether two frames have identical shape and values.
// NaN cells compare equal to NaN.
func (f *Frame) Equal(other *Frame) bool {
	if !f.SameShape(other) {
		return false
	}
	for i := range f.values {
		for j := range f.values[i] {
			a, b := f.values[i][j], other.values[i][j]
			if math.IsNaN(a) != math.IsNaN(b) {
				return false
			}
			if !math.IsNaN(a) && a != b {
				return false
			}
		}
	}
	return true
}
