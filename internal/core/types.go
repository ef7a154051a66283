package core

import "time"

// Canonical field names shared by providers and stages.
const (
	FieldOpen   = "open"
	FieldHigh   = "high"
	FieldLow    = "low"
	FieldClose  = "close"
	FieldVolume = "volume"
)

// DataRequest describes the panel a data provider should return.
type DataRequest struct {
	Universe []string // Instrument identifiers, order preserved
	Fields   []string // Field names, e.g. "close", "open", "volume"
	Start    time.Time
	End      time.Time
	Interval string // Bar size: "1d", "1h"
}

// Order is one target allocation for the upcoming period. Instruments
// being flattened carry an explicit zero target rather than being omitted.
type Order struct {
	Instrument   string  `json:"instrument"`
	TargetWeight float64 `json:"target_weight"`
}

// OrderBatch is the live-mode result: the position the backtest would
// hold on the next bar, one order per instrument in the universe.
type OrderBatch struct {
	RunID    string    `json:"run_id"`
	Strategy string    `json:"strategy"`
	AsOf     time.Time `json:"as_of"` // Date of the signal row the batch was derived from
	Orders   []Order   `json:"orders"`
}

// IsFlat reports whether every order in the batch has a zero target.
func (b OrderBatch) IsFlat() bool {
	for _, o := range b.Orders {
		if o.TargetWeight != 0 {
			return false
		}
	}
	return true
}
