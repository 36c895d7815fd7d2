package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(n int) []time.Time {
	out := make([]time.Time, n)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func TestNewPriceMatrix(t *testing.T) {
	m, err := NewPriceMatrix(days(3), []string{"A", "B"}, [][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)

	assert.Equal(t, 3, m.Rows())
	assert.Equal(t, 2, m.Width())
	assert.True(t, m.Has("A"))
	assert.False(t, m.Has("C"))

	col, ok := m.Column("B")
	require.True(t, ok)
	assert.Equal(t, []float64{4, 5, 6}, col)
}

func TestNewPriceMatrix_Errors(t *testing.T) {
	_, err := NewPriceMatrix(days(2), []string{"A"}, [][]float64{{1, 2}, {3, 4}})
	assert.Error(t, err, "length mismatch")

	_, err = NewPriceMatrix(days(2), []string{"A", "A"}, [][]float64{{1, 2}, {3, 4}})
	assert.Error(t, err, "duplicate symbol")

	_, err = NewPriceMatrix(days(2), []string{"A"}, [][]float64{{1}})
	assert.Error(t, err, "short column")
}

func TestPriceMatrix_Hash(t *testing.T) {
	a, _ := NewPriceMatrix(days(2), []string{"A", "B"}, [][]float64{{1, 2}, {3, 4}})
	b, _ := NewPriceMatrix(days(2), []string{"A", "B"}, [][]float64{{1, 2}, {3, 4}})
	c, _ := NewPriceMatrix(days(2), []string{"A", "B"}, [][]float64{{1, 2}, {3, 4.5}})

	assert.Len(t, a.Hash(), 64)
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestWeightsTable(t *testing.T) {
	w := WeightsTable{{Symbol: "AAPL", Value: 0.6}, {Symbol: "MSFT", Value: 0.45}}

	v, ok := w.Get("MSFT")
	assert.True(t, ok)
	assert.Equal(t, 0.45, v)

	_, ok = w.Get("IBM")
	assert.False(t, ok)

	assert.Equal(t, []string{"AAPL", "MSFT"}, w.Symbols())
	assert.Equal(t, []string{"Symbol, Weight", "AAPL, 0.6", "MSFT, 0.45"}, w.Lines())
}

func TestRegressionResult_NegativeCount(t *testing.T) {
	r := RegressionResult{Coefficients: []Coefficient{{"A", 0.5}, {"B", -0.1}, {"C", 0}}}
	assert.Equal(t, 1, r.NegativeCount())
}

func TestNewOutcome(t *testing.T) {
	ok := NewOutcome(&ReplicationResult{IndexSymbol: "IDX"}, nil)
	assert.True(t, ok.Success)
	assert.Equal(t, "IDX", ok.Result.IndexSymbol)

	fail := NewOutcome(nil, assert.AnError)
	assert.False(t, fail.Success)
	assert.Equal(t, assert.AnError.Error(), fail.Message)
	assert.Nil(t, fail.Result)
}
