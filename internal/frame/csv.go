package frame

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// MarshalCSV encodes the frame with dates as the index column and
// instruments as the header. Missing values are written as empty cells.
// The column order is the stable contract downstream consumers depend on.
func (f *Frame) MarshalCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{"date"}, f.instruments...)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for i, date := range f.dates {
		record := make([]string, 0, len(f.instruments)+1)
		record = append(record, date.Format(dateLayout))
		for j := range f.instruments {
			v := f.values[i][j]
			if math.IsNaN(v) {
				record = append(record, "")
			} else {
				record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// UnmarshalCSV decodes a frame written by MarshalCSV: first column is the
// date index, remaining columns are instruments, empty cells are NaN.
func UnmarshalCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 || len(records[0]) < 2 {
		return nil, fmt.Errorf("csv must have a date column and at least one instrument")
	}

	instruments := records[0][1:]
	dates := make([]time.Time, 0, len(records)-1)
	values := make([][]float64, 0, len(records)-1)

	for _, record := range records[1:] {
		if len(record) != len(instruments)+1 {
			return nil, fmt.Errorf("row %s has %d cells, want %d", record[0], len(record), len(instruments)+1)
		}
		date, err := time.Parse(dateLayout, record[0])
		if err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", record[0], err)
		}
		row := make([]float64, len(instruments))
		for j, cell := range record[1:] {
			if cell == "" {
				row[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing value %q at %s/%s: %w", cell, record[0], instruments[j], err)
			}
			row[j] = v
		}
		dates = append(dates, date)
		values = append(values, row)
	}

	return New(dates, instruments, values)
}
