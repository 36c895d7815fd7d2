package prices

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/pkg/logger"
)

// Source kinds
const (
	KindCSV      = "csv"
	KindPostgres = "postgres"
	KindHTTP     = "http"
)

// NewSource picks a price source by kind; pool is only needed for postgres.
// For http, file is the URL of a CSV with the same layout as the csv kind.
func NewSource(kind, file string, pool *pgxpool.Pool, log *logger.Logger) (contracts.PriceSource, error) {
	switch kind {
	case KindCSV, "":
		if file == "" {
			return nil, fmt.Errorf("csv source needs a file path")
		}
		return NewCSVSource(file, log), nil
	case KindPostgres:
		if pool == nil {
			return nil, fmt.Errorf("postgres source needs a database connection")
		}
		return NewPostgresSource(pool, log), nil
	case KindHTTP:
		if !strings.HasPrefix(file, "http://") && !strings.HasPrefix(file, "https://") {
			return nil, fmt.Errorf("http source needs an http(s) URL, got %q", file)
		}
		return NewHTTPSource(file, nil, log), nil
	default:
		return nil, fmt.Errorf("unknown price source %q", kind)
	}
}
