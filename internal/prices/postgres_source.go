package prices

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/pkg/logger"
)

// PostgresSource loads closing prices from data.daily_prices
// ⭐ SSOT: DB 가격 조회는 여기서만
type PostgresSource struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgresSource creates a new postgres price source
func NewPostgresSource(pool *pgxpool.Pool, log *logger.Logger) *PostgresSource {
	if log == nil {
		log = logger.Nop()
	}
	return &PostgresSource{pool: pool, logger: log}
}

// Name returns the source name
func (s *PostgresSource) Name() string {
	return "postgres"
}

// Load queries the range and pivots it
func (s *PostgresSource) Load(ctx context.Context, q contracts.PriceQuery) (*contracts.PriceMatrix, error) {
	query, args := buildPriceQuery(q)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var out []contracts.PriceRow
	for rows.Next() {
		var r contracts.PriceRow
		if err := rows.Scan(&r.Symbol, &r.Date, &r.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w", err)
	}

	matrix, stats, err := Pivot(out)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"rows":          stats.Rows,
		"dates":         stats.Dates,
		"symbols":       stats.Symbols,
		"dropped_dates": stats.DroppedDates,
	}).Info("Prices loaded from database")

	return matrix, nil
}

func buildPriceQuery(q contracts.PriceQuery) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)

	if !q.From.IsZero() {
		args = append(args, q.From)
		where = append(where, fmt.Sprintf("trade_date >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		where = append(where, fmt.Sprintf("trade_date <= $%d", len(args)))
	}
	if len(q.Symbols) > 0 {
		args = append(args, q.Symbols)
		where = append(where, fmt.Sprintf("symbol = ANY($%d)", len(args)))
	}

	query := `
		SELECT symbol, trade_date, close_price
		FROM data.daily_prices
		WHERE close_price IS NOT NULL`
	if len(where) > 0 {
		query += " AND " + strings.Join(where, " AND ")
	}
	query += " ORDER BY trade_date ASC, symbol ASC"

	return query, args
}
