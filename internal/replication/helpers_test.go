package replication

import (
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wonny/indexrep/internal/contracts"
)

const testDays = 20

func series(f func(t int) float64) []float64 {
	out := make([]float64, testDays)
	for t := range out {
		out[t] = f(t)
	}
	return out
}

func buildMatrix(t *testing.T, cols map[string][]float64) *contracts.PriceMatrix {
	t.Helper()

	symbols := make([]string, 0, len(cols))
	for sym := range cols {
		symbols = append(symbols, sym)
	}
	// 피벗과 동일하게 심볼 오름차순
	sort.Strings(symbols)

	var rows int
	data := make([][]float64, len(symbols))
	for i, sym := range symbols {
		data[i] = cols[sym]
		rows = len(cols[sym])
	}

	dates := make([]time.Time, rows)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}

	m, err := contracts.NewPriceMatrix(dates, symbols, data)
	require.NoError(t, err)
	return m
}

// scenarioA: IDX = 0.6*A + 0.4*B, A and B are the two most correlated assets
func scenarioA(t *testing.T) *contracts.PriceMatrix {
	a := series(func(t int) float64 { return 100 + 2*float64(t) })
	b := series(func(t int) float64 { return 50 + 3*float64(t) + float64(t%3) })
	idx := make([]float64, testDays)
	for i := range idx {
		idx[i] = 0.6*a[i] + 0.4*b[i]
	}

	return buildMatrix(t, map[string][]float64{
		"IDX": idx,
		"A":   a,
		"B":   b,
		"C":   series(func(t int) float64 { return 200 - float64(t) }),
		"D":   series(func(t int) float64 { return 100 + 5*float64(t%2) }),
	})
}

// scenarioC: B = 2*A (collinear top pair), IDX = 0.5*A + 0.5*C
func scenarioC(t *testing.T) *contracts.PriceMatrix {
	a := series(func(t int) float64 { return 100 + 2*float64(t) })
	b := make([]float64, testDays)
	for i := range b {
		b[i] = 2 * a[i]
	}
	c := series(func(t int) float64 { return 50 + float64(t) + 10*float64(t%2) })
	idx := make([]float64, testDays)
	for i := range idx {
		idx[i] = 0.5*a[i] + 0.5*c[i]
	}

	return buildMatrix(t, map[string][]float64{
		"IDX": idx,
		"A":   a,
		"B":   b,
		"C":   c,
		"D":   series(func(t int) float64 { return 300 - float64(t) }),
	})
}

// shortOnly: IDX = 2*A - B, the only candidate needs a short position
func shortOnly(t *testing.T) *contracts.PriceMatrix {
	a := series(func(t int) float64 { return 100 + 2*float64(t) })
	b := series(func(t int) float64 { return 50 + float64(t) + 3*float64(t%2) })
	idx := make([]float64, testDays)
	for i := range idx {
		idx[i] = 2*a[i] - b[i]
	}

	return buildMatrix(t, map[string][]float64{"IDX": idx, "A": a, "B": b})
}

// noisyUniverse: 10 random-walk assets, index built from lower-ranked names
func noisyUniverse(t *testing.T, seed int64) *contracts.PriceMatrix {
	rng := rand.New(rand.NewSource(seed))
	cols := make(map[string][]float64)
	names := []string{"AA", "BB", "CC", "DD", "EE", "FF", "GG", "HH", "II", "JJ"}
	for _, name := range names {
		col := make([]float64, 60)
		price := 50 + rng.Float64()*100
		for i := range col {
			price *= 1 + rng.NormFloat64()*0.02
			col[i] = price
		}
		cols[name] = col
	}

	idx := make([]float64, 60)
	for i := range idx {
		idx[i] = 0.3*cols["CC"][i] + 0.5*cols["GG"][i] - 0.2*cols["JJ"][i] + rng.NormFloat64()
	}
	cols["IDX"] = idx
	return buildMatrix(t, cols)
}

type fakeRecorder struct {
	mu         sync.Mutex
	candidates map[string]int
	searches   map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{candidates: map[string]int{}, searches: map[string]int{}}
}

func (f *fakeRecorder) ObserveCandidate(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates[outcome]++
}

func (f *fakeRecorder) ObserveSearch(status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches[status]++
}

func (f *fakeRecorder) totalCandidates() int {
	total := 0
	for _, n := range f.candidates {
		total += n
	}
	return total
}
