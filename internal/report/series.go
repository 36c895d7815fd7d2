package report

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/indexrep/internal/contracts"
)

// TrackingStats compares the replicating portfolio with the index
type TrackingStats struct {
	RMSE             float64 `json:"rmse"`
	MeanAbsDeviation float64 `json:"mean_abs_deviation"`
	MaxAbsDeviation  float64 `json:"max_abs_deviation"`
	Correlation      float64 `json:"correlation"`
}

// MarshalJSON writes an undefined correlation as null
func (t TrackingStats) MarshalJSON() ([]byte, error) {
	type alias struct {
		RMSE             float64  `json:"rmse"`
		MeanAbsDeviation float64  `json:"mean_abs_deviation"`
		MaxAbsDeviation  float64  `json:"max_abs_deviation"`
		Correlation      *float64 `json:"correlation"`
	}
	out := alias{RMSE: t.RMSE, MeanAbsDeviation: t.MeanAbsDeviation, MaxAbsDeviation: t.MaxAbsDeviation}
	if !math.IsNaN(t.Correlation) && !math.IsInf(t.Correlation, 0) {
		c := t.Correlation
		out.Correlation = &c
	}
	return json.Marshal(out)
}

// PortfolioSeries is Σ weight × close per date, using the rounded weights
func PortfolioSeries(matrix *contracts.PriceMatrix, weights contracts.WeightsTable) ([]float64, error) {
	out := make([]float64, matrix.Rows())
	for _, w := range weights {
		col, ok := matrix.Column(w.Symbol)
		if !ok {
			return nil, fmt.Errorf("weight symbol %q is not in the price matrix", w.Symbol)
		}
		floats.AddScaled(out, w.Value, col)
	}
	return out, nil
}

// Track computes deviation statistics between two aligned series
func Track(index, portfolio []float64) (TrackingStats, error) {
	if len(index) != len(portfolio) {
		return TrackingStats{}, fmt.Errorf("series length mismatch: %d vs %d", len(index), len(portfolio))
	}
	if len(index) == 0 {
		return TrackingStats{}, fmt.Errorf("empty series")
	}

	diff := make([]float64, len(index))
	floats.SubTo(diff, portfolio, index)

	var sumSq, sumAbs, maxAbs float64
	for _, d := range diff {
		sumSq += d * d
		sumAbs += math.Abs(d)
		maxAbs = math.Max(maxAbs, math.Abs(d))
	}
	n := float64(len(diff))

	corr := math.NaN()
	if len(index) > 1 {
		corr = stat.Correlation(index, portfolio, nil)
	}

	return TrackingStats{
		RMSE:             math.Sqrt(sumSq / n),
		MeanAbsDeviation: sumAbs / n,
		MaxAbsDeviation:  maxAbs,
		Correlation:      corr,
	}, nil
}
