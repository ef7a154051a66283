package frame

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRoundTrip(t *testing.T) {
	f := mustFrame(t, 3, []string{"A", "B"}, [][]float64{
		{10.5, 20},
		{math.NaN(), 21},
		{12, math.NaN()},
	})

	data, err := f.MarshalCSV()
	require.NoError(t, err)

	got, err := UnmarshalCSV(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.True(t, f.Equal(got))
}

func TestMarshalCSV_Layout(t *testing.T) {
	f := mustFrame(t, 1, []string{"A", "B"}, [][]float64{{1, math.NaN()}})

	data, err := f.MarshalCSV()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,A,B", lines[0])
	assert.Equal(t, "2024-01-01,1,", lines[1], "missing values are empty cells")
}

func TestUnmarshalCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no instrument column", "date\n2024-01-01\n"},
		{"bad date", "date,A\nnot-a-date,1\n"},
		{"bad value", "date,A\n2024-01-01,one\n"},
		{"descending dates", "date,A\n2024-01-02,1\n2024-01-01,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalCSV(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}
