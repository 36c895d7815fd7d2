package replication

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/wonny/indexrep/internal/contracts"
)

// DefaultMaxCondition is the condition number above which a design matrix is singular
const DefaultMaxCondition = 1e10

// RegressionSolver fits the index against a candidate's price columns.
// OLS without intercept, solved through a QR factorisation.
type RegressionSolver struct {
	maxCondition float64
}

// NewRegressionSolver creates a solver; maxCondition <= 1 selects the default
func NewRegressionSolver(maxCondition float64) *RegressionSolver {
	if maxCondition <= 1 {
		maxCondition = DefaultMaxCondition
	}
	return &RegressionSolver{maxCondition: maxCondition}
}

// Fit regresses index on the given columns (columns[i] belongs to symbols[i]).
// Returns ErrSingularModel when the design matrix cannot be solved reliably.
func (s *RegressionSolver) Fit(index []float64, symbols []string, columns [][]float64) (*contracts.RegressionResult, error) {
	rows, cols := len(index), len(columns)
	if cols == 0 || len(symbols) != cols {
		return nil, fmt.Errorf("fit: %d symbols for %d columns", len(symbols), cols)
	}
	if rows < cols {
		return nil, fmt.Errorf("%w: %d observations for %d regressors", ErrSingularModel, rows, cols)
	}
	if !allFinite(index) {
		return nil, fmt.Errorf("%w: index series has non-finite values", ErrSingularModel)
	}

	x := mat.NewDense(rows, cols, nil)
	for j, col := range columns {
		if len(col) != rows {
			return nil, fmt.Errorf("fit: column %q has %d values, want %d", symbols[j], len(col), rows)
		}
		if !allFinite(col) {
			return nil, fmt.Errorf("%w: column %q has non-finite values", ErrSingularModel, symbols[j])
		}
		x.SetCol(j, col)
	}

	var qr mat.QR
	qr.Factorize(x)

	cond := qr.Cond()
	if math.IsNaN(cond) || math.IsInf(cond, 0) || cond > s.maxCondition {
		return nil, fmt.Errorf("%w: condition number %.3g exceeds %.3g", ErrSingularModel, cond, s.maxCondition)
	}

	y := mat.NewVecDense(rows, append([]float64(nil), index...))
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularModel, err)
	}

	coefs := make([]contracts.Coefficient, cols)
	for j := range coefs {
		coefs[j] = contracts.Coefficient{Symbol: symbols[j], Value: beta.AtVec(j)}
	}

	// 잔차 (no-intercept 모델이므로 uncentered R²)
	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	resid := make([]float64, rows)
	for i := range resid {
		resid[i] = index[i] - fitted.AtVec(i)
	}
	rss := floats.Dot(resid, resid)
	tss := floats.Dot(index, index)

	rSquared := math.NaN()
	if tss > 0 {
		rSquared = 1 - rss/tss
	}

	return &contracts.RegressionResult{
		Coefficients: coefs,
		RSS:          rss,
		RSquared:     rSquared,
	}, nil
}

func allFinite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
