package contracts

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// RankedAsset is one entry of the correlation ranking
type RankedAsset struct {
	Symbol      string  `json:"symbol"`
	Correlation float64 `json:"correlation"`
}

// Candidate is one position window materialised into symbols
type Candidate struct {
	Offset    int      `json:"offset"`    // start offset (i_add)
	Positions []int    `json:"positions"` // indices into the ranked list
	Symbols   []string `json:"symbols"`
}

// Coefficient is one fitted regression coefficient
type Coefficient struct {
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`
}

// RegressionResult is the no-intercept OLS fit for a candidate
type RegressionResult struct {
	Coefficients []Coefficient `json:"coefficients"`
	RSS          float64       `json:"rss"`       // residual sum of squares
	RSquared     float64       `json:"r_squared"` // uncentered R²
}

// NegativeCount returns how many coefficients are strictly below zero
func (r *RegressionResult) NegativeCount() int {
	count := 0
	for _, c := range r.Coefficients {
		if c.Value < 0 {
			count++
		}
	}
	return count
}

// Weight is one rounded portfolio weight
type Weight struct {
	Symbol string  `json:"symbol"`
	Value  float64 `json:"weight"`
}

// WeightsTable is the final symbol → weight mapping in subset order
// ⭐ 계약: 생성 후 불변 (reporting/console이 소비)
type WeightsTable []Weight

// Get returns the weight for symbol
func (w WeightsTable) Get(symbol string) (float64, bool) {
	for _, entry := range w {
		if entry.Symbol == symbol {
			return entry.Value, true
		}
	}
	return 0, false
}

// Symbols returns the symbols in table order
func (w WeightsTable) Symbols() []string {
	out := make([]string, len(w))
	for i, entry := range w {
		out[i] = entry.Symbol
	}
	return out
}

// Lines renders the table in the "symbol, weight" console format
func (w WeightsTable) Lines() []string {
	lines := make([]string, 0, len(w)+1)
	lines = append(lines, "Symbol, Weight")
	for _, entry := range w {
		lines = append(lines, entry.Symbol+", "+strconv.FormatFloat(entry.Value, 'f', -1, 64))
	}
	return lines
}

// ReplicationResult is the accepted model plus search bookkeeping
type ReplicationResult struct {
	RunID               string           `json:"run_id"`
	IndexSymbol         string           `json:"index_symbol"`
	SubsetSize          int              `json:"subset_size"`
	DatasetHash         string           `json:"dataset_hash,omitempty"`
	Ranked              []RankedAsset    `json:"ranked"`
	Accepted            Candidate        `json:"accepted"`
	Model               RegressionResult `json:"model"`
	Weights             WeightsTable     `json:"weights"`
	CandidatesEvaluated int              `json:"candidates_evaluated"`
	SingularRejected    int              `json:"singular_rejected"`
	Duration            time.Duration    `json:"duration"`
	CreatedAt           time.Time        `json:"created_at"`
}

// Outcome is the structured success/failure handed to callers
type Outcome struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Result  *ReplicationResult `json:"result,omitempty"`
}

// NewOutcome converts a search return pair into an Outcome
func NewOutcome(result *ReplicationResult, err error) Outcome {
	if err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	return Outcome{Success: true, Result: result}
}

// nullableFloat maps NaN/Inf to JSON null
func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func floatOrNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

type rankedAssetJSON struct {
	Symbol      string   `json:"symbol"`
	Correlation *float64 `json:"correlation"`
}

// MarshalJSON writes an undefined correlation as null
func (a RankedAsset) MarshalJSON() ([]byte, error) {
	return json.Marshal(rankedAssetJSON{Symbol: a.Symbol, Correlation: nullableFloat(a.Correlation)})
}

// UnmarshalJSON reads null back as NaN
func (a *RankedAsset) UnmarshalJSON(data []byte) error {
	var raw rankedAssetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Symbol = raw.Symbol
	a.Correlation = floatOrNaN(raw.Correlation)
	return nil
}

type regressionResultJSON struct {
	Coefficients []Coefficient `json:"coefficients"`
	RSS          float64       `json:"rss"`
	RSquared     *float64      `json:"r_squared"`
}

// MarshalJSON writes an undefined R² as null
func (r RegressionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(regressionResultJSON{
		Coefficients: r.Coefficients,
		RSS:          r.RSS,
		RSquared:     nullableFloat(r.RSquared),
	})
}

// UnmarshalJSON reads null back as NaN
func (r *RegressionResult) UnmarshalJSON(data []byte) error {
	var raw regressionResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Coefficients = raw.Coefficients
	r.RSS = raw.RSS
	r.RSquared = floatOrNaN(raw.RSquared)
	return nil
}
