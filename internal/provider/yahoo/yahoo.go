// Package yahoo serves panels from the Yahoo Finance chart API,
// fetching each instrument's history and aligning the per-field series
// onto the union of trading dates. Dates an instrument did not trade
// are missing values, never zeros.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/frame"
	"github.com/newthinker/lunar/internal/panel"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// validSymbol matches stock symbols like AAPL, MSFT, 600519.SH, 0700.HK
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9]{1,10}(\.[A-Za-z]{1,4})?$`)

// Provider fetches panels from Yahoo Finance.
type Provider struct {
	client  *http.Client
	baseURL string
}

// New creates a Provider with the given HTTP timeout.
func New(timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		client:  &http.Client{Timeout: timeout},
		baseURL: defaultBaseURL,
	}
}

// NewWithBaseURL creates a Provider against a custom endpoint, used in
// tests against httptest servers.
func NewWithBaseURL(baseURL string, timeout time.Duration) *Provider {
	p := New(timeout)
	p.baseURL = strings.TrimSuffix(baseURL, "/")
	return p
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// history is one instrument's per-field series keyed by date.
type history map[string]map[time.Time]float64

// FetchPanel fetches every instrument in the universe and aligns the
// requested fields into a Panel over the union of observed dates.
func (p *Provider) FetchPanel(ctx context.Context, req core.DataRequest) (*panel.Panel, error) {
	if len(req.Universe) == 0 {
		return nil, fmt.Errorf("empty universe")
	}
	if len(req.Fields) == 0 {
		return nil, fmt.Errorf("no fields requested")
	}
	for _, field := range req.Fields {
		switch field {
		case core.FieldOpen, core.FieldHigh, core.FieldLow, core.FieldClose, core.FieldVolume:
		default:
			return nil, fmt.Errorf("field %s not available from yahoo", field)
		}
	}

	histories := make(map[string]history, len(req.Universe))
	dateSet := make(map[time.Time]bool)

	for _, symbol := range req.Universe {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, err := p.fetchHistory(ctx, symbol, req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", symbol, err)
		}
		histories[symbol] = h
		for date := range h[core.FieldClose] {
			dateSet[date] = true
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if len(dates) == 0 {
		return nil, fmt.Errorf("no data in requested range")
	}

	fields := make(map[string]*frame.Frame, len(req.Fields))
	for _, field := range req.Fields {
		values := make([][]float64, len(dates))
		for i, date := range dates {
			row := make([]float64, len(req.Universe))
			for j, symbol := range req.Universe {
				v, ok := histories[symbol][field][date]
				if !ok {
					v = math.NaN()
				}
				row[j] = v
			}
			values[i] = row
		}
		f, err := frame.New(dates, req.Universe, values)
		if err != nil {
			return nil, err
		}
		fields[field] = f
	}

	return panel.Align(req.Fields, fields)
}

func (p *Provider) fetchHistory(ctx context.Context, symbol string, req core.DataRequest) (history, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}

	interval := req.Interval
	if interval == "" {
		interval = "1d"
	}
	url := fmt.Sprintf("%s/%s?interval=%s&period1=%d&period2=%d",
		p.baseURL, toYahooSymbol(symbol), interval, req.Start.Unix(), req.End.Unix())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no data for symbol: %s", symbol)
	}

	r := result.Chart.Result[0]
	quote := r.Indicators.Quote[0]

	h := history{
		core.FieldOpen:   make(map[time.Time]float64),
		core.FieldHigh:   make(map[time.Time]float64),
		core.FieldLow:    make(map[time.Time]float64),
		core.FieldClose:  make(map[time.Time]float64),
		core.FieldVolume: make(map[time.Time]float64),
	}

	for i, ts := range r.Timestamp {
		// Normalize to the UTC date so all symbols share one index
		date := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		set := func(field string, series []float64) {
			if i < len(series) && series[i] != 0 {
				h[field][date] = series[i]
			}
		}
		set(core.FieldOpen, quote.Open)
		set(core.FieldHigh, quote.High)
		set(core.FieldLow, quote.Low)
		set(core.FieldClose, quote.Close)
		set(core.FieldVolume, quote.Volume)
	}

	return h, nil
}

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}
