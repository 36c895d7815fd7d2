package replication

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/indexrep/internal/contracts"
)

// CorrelationRanker orders assets by Pearson correlation with the index
// ⭐ SSOT: 상관계수 랭킹 로직은 여기서만
type CorrelationRanker struct{}

// NewCorrelationRanker creates a new ranker
func NewCorrelationRanker() *CorrelationRanker {
	return &CorrelationRanker{}
}

// Rank returns every non-index symbol sorted by descending correlation.
// Ties keep matrix column order; undefined correlations (NaN) go last.
func (r *CorrelationRanker) Rank(matrix *contracts.PriceMatrix, indexSymbol string) ([]contracts.RankedAsset, error) {
	index, ok := matrix.Column(indexSymbol)
	if !ok {
		return nil, configError{fmt.Errorf("%w: %q is not a column of the price matrix", ErrIndexNotFound, indexSymbol)}
	}

	ranked := make([]contracts.RankedAsset, 0, matrix.Width())
	for _, sym := range matrix.Symbols() {
		if sym == indexSymbol {
			continue
		}
		col, _ := matrix.Column(sym)
		ranked = append(ranked, contracts.RankedAsset{
			Symbol:      sym,
			Correlation: correlation(col, index),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Correlation, ranked[j].Correlation
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a > b
	})

	return ranked, nil
}

// correlation returns NaN when either series is too short or constant
func correlation(x, y []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}
