package contracts

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"
)

// PriceRow is one long-format observation (date, symbol, close)
type PriceRow struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Close  float64   `json:"close"`
}

// PriceMatrix is a date × symbol table of closing prices
// ⭐ SSOT: 모든 컬럼은 같은 날짜 인덱스를 공유 (로더가 정렬/정합 보장)
type PriceMatrix struct {
	dates   []time.Time
	symbols []string
	columns map[string][]float64
}

// NewPriceMatrix builds a matrix from aligned columns.
// columns[i] belongs to symbols[i] and must have len(dates) values.
func NewPriceMatrix(dates []time.Time, symbols []string, columns [][]float64) (*PriceMatrix, error) {
	if len(symbols) != len(columns) {
		return nil, fmt.Errorf("symbols/columns length mismatch: %d vs %d", len(symbols), len(columns))
	}

	m := &PriceMatrix{
		dates:   dates,
		symbols: symbols,
		columns: make(map[string][]float64, len(symbols)),
	}
	for i, sym := range symbols {
		if _, dup := m.columns[sym]; dup {
			return nil, fmt.Errorf("duplicate symbol column %q", sym)
		}
		if len(columns[i]) != len(dates) {
			return nil, fmt.Errorf("column %q has %d values, want %d", sym, len(columns[i]), len(dates))
		}
		m.columns[sym] = columns[i]
	}
	return m, nil
}

// Dates returns the shared date index
func (m *PriceMatrix) Dates() []time.Time {
	return m.dates
}

// Symbols returns the column symbols in column order
func (m *PriceMatrix) Symbols() []string {
	return m.symbols
}

// Column returns the price series for symbol
func (m *PriceMatrix) Column(symbol string) ([]float64, bool) {
	col, ok := m.columns[symbol]
	return col, ok
}

// Has reports whether symbol is a column
func (m *PriceMatrix) Has(symbol string) bool {
	_, ok := m.columns[symbol]
	return ok
}

// Rows returns the number of dates
func (m *PriceMatrix) Rows() int {
	return len(m.dates)
}

// Width returns the number of symbols
func (m *PriceMatrix) Width() int {
	return len(m.symbols)
}

// Hash fingerprints dates, symbols and values.
// 동일 입력 → 동일 해시 (결과 캐시 키로 사용)
func (m *PriceMatrix) Hash() string {
	h := sha256.New()
	var buf [8]byte

	for _, d := range m.dates {
		binary.LittleEndian.PutUint64(buf[:], uint64(d.Unix()))
		h.Write(buf[:])
	}
	for _, sym := range m.symbols {
		h.Write([]byte(sym))
		h.Write([]byte{0})
		for _, v := range m.columns[sym] {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
