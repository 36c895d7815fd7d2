package prices

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/pkg/logger"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"1/2/2006",
}

// CSVSource loads prices from a Date,Symbol,Close file
type CSVSource struct {
	path   string
	logger *logger.Logger
}

// NewCSVSource creates a CSV price source
func NewCSVSource(path string, log *logger.Logger) *CSVSource {
	if log == nil {
		log = logger.Nop()
	}
	return &CSVSource{path: path, logger: log}
}

// Name returns the source name
func (s *CSVSource) Name() string {
	return "csv:" + s.path
}

// Load reads the file, applies the query and pivots
func (s *CSVSource) Load(ctx context.Context, q contracts.PriceQuery) (*contracts.PriceMatrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	matrix, stats, err := Pivot(Filter(rows, q))
	if err != nil {
		return nil, fmt.Errorf("pivot %s: %w", s.path, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"file":          s.path,
		"rows":          stats.Rows,
		"dates":         stats.Dates,
		"symbols":       stats.Symbols,
		"dropped_dates": stats.DroppedDates,
	}).Info("Price file loaded")

	return matrix, nil
}

// ReadFile parses a price CSV file into long-format rows
func ReadFile(path string) ([]contracts.PriceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price file: %w", err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadRows parses Date,Symbol,Close records.
// Header names are matched case-insensitively; other columns are ignored.
// A row with an empty close is skipped (the date is then dropped by Pivot).
func ReadRows(r io.Reader) ([]contracts.PriceRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateCol, symCol, closeCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "date":
			dateCol = i
		case "symbol":
			symCol = i
		case "close":
			closeCol = i
		}
	}
	if dateCol < 0 || symCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("%w: header must contain Date, Symbol and Close columns", ErrMalformedInput)
	}
	width := max(dateCol, symCol, closeCol) + 1

	var rows []contracts.PriceRow
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(record) < width {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrMalformedInput, line, len(record))
		}

		raw := strings.TrimSpace(record[closeCol])
		if raw == "" {
			continue
		}

		date, err := parseDate(record[dateCol])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, line, err)
		}
		closePrice, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: close %q is not a number", ErrMalformedInput, line, raw)
		}
		symbol := strings.TrimSpace(record[symCol])
		if symbol == "" {
			return nil, fmt.Errorf("%w: line %d: empty symbol", ErrMalformedInput, line)
		}

		rows = append(rows, contracts.PriceRow{Date: date, Symbol: symbol, Close: closePrice})
	}

	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}
	return rows, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
