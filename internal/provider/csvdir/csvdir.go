// Package csvdir serves panels from a local directory of per-field CSV
// files (close.csv, open.csv, ...), each with dates as the index column
// and instruments as the header. This is the provider used in tests and
// offline research.
package csvdir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/frame"
	"github.com/newthinker/lunar/internal/panel"
)

// Provider reads field CSVs from one directory.
type Provider struct {
	dir string
}

// New creates a Provider rooted at dir.
func New(dir string) (*Provider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return &Provider{dir: dir}, nil
}

// FetchPanel loads the requested fields, restricts each to the requested
// universe and date range, and aligns them into a Panel.
func (p *Provider) FetchPanel(ctx context.Context, req core.DataRequest) (*panel.Panel, error) {
	if len(req.Fields) == 0 {
		return nil, fmt.Errorf("no fields requested")
	}

	fields := make(map[string]*frame.Frame, len(req.Fields))
	for _, field := range req.Fields {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := p.loadField(field)
		if err != nil {
			return nil, err
		}
		f, err = restrict(f, req)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
		fields[field] = f
	}

	return panel.Align(req.Fields, fields)
}

func (p *Provider) loadField(field string) (*frame.Frame, error) {
	path := filepath.Join(p.dir, field+".csv")
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	f, err := frame.UnmarshalCSV(file)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// restrict narrows a frame to the requested universe and date range,
// preserving the universe's order. Instruments missing from the file are
// an error rather than silently dropped.
func restrict(f *frame.Frame, req core.DataRequest) (*frame.Frame, error) {
	var dates []time.Time
	var rows [][]float64

	have := f.Instruments()
	universe := req.Universe
	if len(universe) == 0 {
		universe = have
	}

	cols := make([]int, len(universe))
	for u, inst := range universe {
		cols[u] = -1
		for j, name := range have {
			if name == inst {
				cols[u] = j
				break
			}
		}
		if cols[u] == -1 {
			return nil, fmt.Errorf("instrument %s not in file", inst)
		}
	}

	allDates := f.Dates()
	for i, date := range allDates {
		if !req.Start.IsZero() && date.Before(req.Start) {
			continue
		}
		if !req.End.IsZero() && date.After(req.End) {
			continue
		}
		row := make([]float64, len(cols))
		for u, j := range cols {
			row[u] = f.At(i, j)
		}
		dates = append(dates, date)
		rows = append(rows, row)
	}

	if len(dates) == 0 {
		return nil, fmt.Errorf("no dates in requested range")
	}

	return frame.New(dates, universe, rows)
}
