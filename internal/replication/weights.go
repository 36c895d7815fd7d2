package replication

import (
	"math"

	"github.com/wonny/indexrep/internal/contracts"
)

// NewWeightsTable rounds each accepted coefficient to two decimals.
// Rounding may show 0 for a tiny positive coefficient; that is a display nuance.
func NewWeightsTable(model *contracts.RegressionResult) contracts.WeightsTable {
	table := make(contracts.WeightsTable, len(model.Coefficients))
	for i, c := range model.Coefficients {
		table[i] = contracts.Weight{Symbol: c.Symbol, Value: roundWeight(c.Value)}
	}
	return table
}

func roundWeight(v float64) float64 {
	return math.Round(v*100) / 100
}
