package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/indexrep/internal/contracts"
)

func TestNewWeightsTable(t *testing.T) {
	model := &contracts.RegressionResult{
		Coefficients: []contracts.Coefficient{
			{Symbol: "MSFT", Value: 0.123},
			{Symbol: "AAPL", Value: 0.875},
			{Symbol: "IBM", Value: 0.004},
			{Symbol: "KO", Value: 1.5},
		},
	}

	table := NewWeightsTable(model)

	assert.Equal(t, []string{"MSFT", "AAPL", "IBM", "KO"}, table.Symbols())
	assert.Equal(t, 0.12, table[0].Value)
	assert.Equal(t, 0.88, table[1].Value)
	assert.Equal(t, 0.0, table[2].Value)
	assert.Equal(t, 1.5, table[3].Value)

	assert.Equal(t, []string{
		"Symbol, Weight",
		"MSFT, 0.12",
		"AAPL, 0.88",
		"IBM, 0",
		"KO, 1.5",
	}, table.Lines())
}

func TestRoundWeight(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.6, 0.6},
		{0.333333, 0.33},
		{0.666666, 0.67},
		{0.125, 0.13},
		{2, 2},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundWeight(tt.in), "in=%v", tt.in)
	}
}
