package prices

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/indexrep/internal/contracts"
)

var (
	ErrEmptyDataset   = errors.New("price dataset is empty")
	ErrDuplicateRow   = errors.New("duplicate (date, symbol) observation")
	ErrMalformedInput = errors.New("malformed price input")
)

// PivotStats describes what Pivot kept and dropped
type PivotStats struct {
	Rows         int `json:"rows"`
	Dates        int `json:"dates"`
	Symbols      int `json:"symbols"`
	DroppedDates int `json:"dropped_dates"` // dates missing at least one symbol
}

// Pivot turns long-format rows into a dense date × symbol matrix.
// Symbols and dates come out ascending; a date that lacks any symbol is dropped.
func Pivot(rows []contracts.PriceRow) (*contracts.PriceMatrix, PivotStats, error) {
	stats := PivotStats{Rows: len(rows)}
	if len(rows) == 0 {
		return nil, stats, ErrEmptyDataset
	}

	byDate := make(map[time.Time]map[string]float64)
	symbolSet := make(map[string]struct{})

	for _, r := range rows {
		day := r.Date.UTC().Truncate(24 * time.Hour)
		obs, ok := byDate[day]
		if !ok {
			obs = make(map[string]float64)
			byDate[day] = obs
		}
		if _, dup := obs[r.Symbol]; dup {
			return nil, stats, fmt.Errorf("%w: %s on %s", ErrDuplicateRow, r.Symbol, day.Format("2006-01-02"))
		}
		obs[r.Symbol] = r.Close
		symbolSet[r.Symbol] = struct{}{}
	}

	symbols := make([]string, 0, len(symbolSet))
	for sym := range symbolSet {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	allDates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		allDates = append(allDates, d)
	}
	sort.Slice(allDates, func(i, j int) bool { return allDates[i].Before(allDates[j]) })

	dates := make([]time.Time, 0, len(allDates))
	for _, d := range allDates {
		if len(byDate[d]) == len(symbols) {
			dates = append(dates, d)
		}
	}
	stats.DroppedDates = len(allDates) - len(dates)
	if len(dates) == 0 {
		return nil, stats, fmt.Errorf("%w: no date has a price for all %d symbols", ErrEmptyDataset, len(symbols))
	}

	columns := make([][]float64, len(symbols))
	for j, sym := range symbols {
		col := make([]float64, len(dates))
		for i, d := range dates {
			col[i] = byDate[d][sym]
		}
		columns[j] = col
	}

	matrix, err := contracts.NewPriceMatrix(dates, symbols, columns)
	if err != nil {
		return nil, stats, err
	}

	stats.Dates = len(dates)
	stats.Symbols = len(symbols)
	return matrix, stats, nil
}

// Filter keeps rows inside the query's date range and symbol set
func Filter(rows []contracts.PriceRow, q contracts.PriceQuery) []contracts.PriceRow {
	var want map[string]struct{}
	if len(q.Symbols) > 0 {
		want = make(map[string]struct{}, len(q.Symbols))
		for _, s := range q.Symbols {
			want[s] = struct{}{}
		}
	}

	out := rows[:0:0]
	for _, r := range rows {
		if !q.From.IsZero() && r.Date.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && r.Date.After(q.To) {
			continue
		}
		if want != nil {
			if _, ok := want[r.Symbol]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
