package prices

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/pkg/httputil"
	"github.com/wonny/indexrep/pkg/logger"
)

// HTTPSource downloads a Date,Symbol,Close CSV on every Load
type HTTPSource struct {
	url    string
	client *httputil.Client
	logger *logger.Logger
}

// NewHTTPSource creates a remote CSV price source
func NewHTTPSource(url string, client *httputil.Client, log *logger.Logger) *HTTPSource {
	if log == nil {
		log = logger.Nop()
	}
	if client == nil {
		client = httputil.New(log)
	}
	return &HTTPSource{url: url, client: client, logger: log}
}

// Name returns the source name
func (s *HTTPSource) Name() string {
	return "http:" + s.url
}

// Load fetches the file, applies the query and pivots
func (s *HTTPSource) Load(ctx context.Context, q contracts.PriceQuery) (*contracts.PriceMatrix, error) {
	body, err := s.client.Fetch(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("download prices: %w", err)
	}

	rows, err := ReadRows(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.url, err)
	}

	matrix, stats, err := Pivot(Filter(rows, q))
	if err != nil {
		return nil, fmt.Errorf("pivot %s: %w", s.url, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"url":           s.url,
		"bytes":         len(body),
		"rows":          stats.Rows,
		"dates":         stats.Dates,
		"symbols":       stats.Symbols,
		"dropped_dates": stats.DroppedDates,
	}).Info("Price file downloaded")

	return matrix, nil
}
