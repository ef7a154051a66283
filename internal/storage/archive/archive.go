// Package archive persists evaluation results so reporting tools can
// pick them up later. Backends share one Storage interface; results are
// written as the CSV frames downstream reporting consumes.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/newthinker/lunar/internal/backtest"
	"github.com/newthinker/lunar/internal/frame"
)

// Storage defines the interface for archive backends.
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// SaveResult archives every retained frame of a run plus its stats
// under <strategy>/<runID>/.
func SaveResult(ctx context.Context, store Storage, res *backtest.Result) error {
	base := path.Join(res.Strategy, res.RunID)

	frames := map[string]*frame.Frame{
		"signals.csv":   res.Pipeline.Signals,
		"weights.csv":   res.Pipeline.Weights,
		"positions.csv": res.Pipeline.Positions,
		"returns.csv":   res.Pipeline.Returns,
	}
	for name, f := range frames {
		data, err := f.MarshalCSV()
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		if err := store.Write(ctx, path.Join(base, name), data); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	stats, err := json.MarshalIndent(res.Stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	return store.Write(ctx, path.Join(base, "stats.json"), stats)
}
