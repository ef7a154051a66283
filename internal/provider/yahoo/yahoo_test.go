package yahoo

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/lunar/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func chartJSON(timestamps []time.Time, closes []float64) string {
	ts := make([]string, len(timestamps))
	for i, t := range timestamps {
		ts[i] = fmt.Sprintf("%d", t.Unix())
	}
	cs := make([]string, len(closes))
	for i, c := range closes {
		cs[i] = fmt.Sprintf("%g", c)
	}
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{"close":[%s]}]}}]}}`,
		strings.Join(ts, ","), strings.Join(cs, ","))
}

func chartServer(t *testing.T, bySymbol map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/")
		body, ok := bySymbol[symbol]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
}

func testRequest(universe ...string) core.DataRequest {
	return core.DataRequest{
		Universe: universe,
		Fields:   []string{core.FieldClose},
		Start:    day(1),
		End:      day(5),
		Interval: "1d",
	}
}

func TestFetchPanel(t *testing.T) {
	srv := chartServer(t, map[string]string{
		"AAA": chartJSON([]time.Time{day(1), day(2), day(3)}, []float64{10, 11, 12}),
		"BBB": chartJSON([]time.Time{day(1), day(3)}, []float64{20, 22}),
	})
	defer srv.Close()

	p := NewWithBaseURL(srv.URL, time.Second)
	got, err := p.FetchPanel(context.Background(), testRequest("AAA", "BBB"))
	require.NoError(t, err)

	// The index is the union of each symbol's trading dates.
	dates := got.Dates()
	require.Len(t, dates, 3)
	for i, want := range []time.Time{day(1), day(2), day(3)} {
		assert.True(t, want.Equal(dates[i]), "date %d: got %s", i, dates[i])
	}
	assert.Equal(t, []string{"AAA", "BBB"}, got.Instruments())

	closes, err := got.Field(core.FieldClose)
	require.NoError(t, err)
	assert.Equal(t, 11.0, closes.At(1, 0))
	assert.True(t, math.IsNaN(closes.At(1, 1)), "date BBB did not trade is missing, not zero")
	assert.Equal(t, 22.0, closes.At(2, 1))
}

func TestFetchPanel_SymbolConversion(t *testing.T) {
	srv := chartServer(t, map[string]string{
		// Shanghai suffix is rewritten for the upstream API.
		"600519.SS": chartJSON([]time.Time{day(1)}, []float64{1700}),
	})
	defer srv.Close()

	p := NewWithBaseURL(srv.URL, time.Second)
	got, err := p.FetchPanel(context.Background(), testRequest("600519.SH"))
	require.NoError(t, err)
	assert.Equal(t, []string{"600519.SH"}, got.Instruments(), "caller keeps its own symbol form")
}

func TestFetchPanel_Errors(t *testing.T) {
	srv := chartServer(t, map[string]string{
		"AAA": chartJSON([]time.Time{day(1)}, []float64{10}),
		"ERR": `{"chart":{"result":[],"error":{"code":"Not Found","description":"no such symbol"}}}`,
	})
	defer srv.Close()
	p := NewWithBaseURL(srv.URL, time.Second)

	_, err := p.FetchPanel(context.Background(), testRequest())
	assert.Error(t, err, "empty universe")

	_, err = p.FetchPanel(context.Background(), core.DataRequest{Universe: []string{"AAA"}})
	assert.Error(t, err, "no fields")

	bad := testRequest("AAA")
	bad.Fields = []string{"vwap"}
	_, err = p.FetchPanel(context.Background(), bad)
	assert.Error(t, err, "unsupported field")

	_, err = p.FetchPanel(context.Background(), testRequest("ERR"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such symbol")

	_, err = p.FetchPanel(context.Background(), testRequest("GONE"))
	assert.Error(t, err, "upstream 404")
}

func TestValidateSymbol(t *testing.T) {
	assert.NoError(t, validateSymbol("AAPL"))
	assert.NoError(t, validateSymbol("600519.SH"))
	assert.NoError(t, validateSymbol("0700.HK"))

	assert.Error(t, validateSymbol(""))
	assert.Error(t, validateSymbol("../etc/passwd"))
	assert.Error(t, validateSymbol("SYMBOLNAMETOOLONGTOBETRUE"))
}
