package csvdir

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/lunar/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const closeCSV = `date,AAA,BBB,CCC
2024-01-01,10,20,30
2024-01-02,11,21,
2024-01-03,12,22,32
`

func writeData(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestNew_NotADirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	dir := writeData(t, map[string]string{"close.csv": closeCSV})
	_, err = New(filepath.Join(dir, "close.csv"))
	assert.Error(t, err)
}

func TestFetchPanel(t *testing.T) {
	dir := writeData(t, map[string]string{"close.csv": closeCSV})
	p, err := New(dir)
	require.NoError(t, err)

	got, err := p.FetchPanel(context.Background(), core.DataRequest{
		Universe: []string{"BBB", "AAA"},
		Fields:   []string{core.FieldClose},
	})
	require.NoError(t, err)

	// Universe order is preserved, not the file's column order.
	assert.Equal(t, []string{"BBB", "AAA"}, got.Instruments())
	assert.Equal(t, 3, got.NumDates())

	closes, err := got.Field(core.FieldClose)
	require.NoError(t, err)
	assert.Equal(t, 20.0, closes.At(0, 0))
	assert.Equal(t, 10.0, closes.At(0, 1))
}

func TestFetchPanel_DateRange(t *testing.T) {
	dir := writeData(t, map[string]string{"close.csv": closeCSV})
	p, err := New(dir)
	require.NoError(t, err)

	got, err := p.FetchPanel(context.Background(), core.DataRequest{
		Universe: []string{"AAA"},
		Fields:   []string{core.FieldClose},
		Start:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumDates())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got.Dates()[0])
}

func TestFetchPanel_EmptyUniverseTakesAllColumns(t *testing.T) {
	dir := writeData(t, map[string]string{"close.csv": closeCSV})
	p, err := New(dir)
	require.NoError(t, err)

	got, err := p.FetchPanel(context.Background(), core.DataRequest{
		Fields: []string{core.FieldClose},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, got.Instruments())
}

func TestFetchPanel_Errors(t *testing.T) {
	dir := writeData(t, map[string]string{"close.csv": closeCSV})
	p, err := New(dir)
	require.NoError(t, err)

	_, err = p.FetchPanel(context.Background(), core.DataRequest{
		Universe: []string{"ZZZ"},
		Fields:   []string{core.FieldClose},
	})
	assert.Error(t, err, "unknown instrument must not be silently dropped")

	_, err = p.FetchPanel(context.Background(), core.DataRequest{
		Universe: []string{"AAA"},
		Fields:   []string{core.FieldVolume},
	})
	assert.Error(t, err, "missing field file")

	_, err = p.FetchPanel(context.Background(), core.DataRequest{
		Universe: []string{"AAA"},
		Fields:   []string{core.FieldClose},
		Start:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err, "empty date range")

	_, err = p.FetchPanel(context.Background(), core.DataRequest{Universe: []string{"AAA"}})
	assert.Error(t, err, "no fields requested")
}

func TestFetchPanel_MultiField(t *testing.T) {
	volumeCSV := `date,AAA,BBB,CCC
2024-01-01,100,200,300
2024-01-02,110,210,310
2024-01-03,120,220,320
`
	dir := writeData(t, map[string]string{"close.csv": closeCSV, "volume.csv": volumeCSV})
	p, err := New(dir)
	require.NoError(t, err)

	got, err := p.FetchPanel(context.Background(), core.DataRequest{
		Universe: []string{"AAA", "CCC"},
		Fields:   []string{core.FieldClose, core.FieldVolume},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{core.FieldClose, core.FieldVolume}, got.Fields())

	volumes, err := got.Field(core.FieldVolume)
	require.NoError(t, err)
	assert.Equal(t, 300.0, volumes.At(0, 1))
}
