package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/indexrep/internal/contracts"
)

// ErrRunNotFound is returned by Get for an unknown run id
var ErrRunNotFound = errors.New("replication run not found")

// RunSummary is one row of ListByIndex
type RunSummary struct {
	RunID       string    `json:"run_id"`
	IndexSymbol string    `json:"index_symbol"`
	SubsetSize  int       `json:"subset_size"`
	DatasetHash string    `json:"dataset_hash"`
	RSquared    float64   `json:"r_squared"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunRepository implements contracts.RunStore
// ⭐ SSOT: 복제 실행 결과 저장/조회는 여기서만
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Save writes the run and its weights in one transaction.
// An empty RunID is filled with a new uuid.
func (r *RunRepository) Save(ctx context.Context, result *contracts.ReplicationResult) error {
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}
	runID, err := uuid.Parse(result.RunID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", result.RunID, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO replication.runs (
			run_id, index_symbol, subset_size, dataset_hash,
			accepted_offset, accepted_positions, rss, r_squared,
			candidates_evaluated, singular_rejected, duration_ms, ranked, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		runID, result.IndexSymbol, result.SubsetSize, result.DatasetHash,
		result.Accepted.Offset, toInt32s(result.Accepted.Positions), result.Model.RSS, result.Model.RSquared,
		result.CandidatesEvaluated, result.SingularRejected, result.Duration.Milliseconds(),
		result.Ranked, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	batch := &pgx.Batch{}
	rows := weightRows(result)
	for _, w := range rows {
		batch.Queue(`
			INSERT INTO replication.run_weights (run_id, position, symbol, coefficient, weight)
			VALUES ($1, $2, $3, $4, $5)`,
			runID, w.position, w.symbol, w.coefficient, w.weight)
	}

	br := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert weights: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close weight batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get loads a run and its weights
func (r *RunRepository) Get(ctx context.Context, runID string) (*contracts.ReplicationResult, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a uuid", ErrRunNotFound, runID)
	}

	var (
		res        contracts.ReplicationResult
		positions  []int32
		durationMS int64
	)
	err = r.pool.QueryRow(ctx, `
		SELECT index_symbol, subset_size, dataset_hash,
		       accepted_offset, accepted_positions, rss, COALESCE(r_squared, 'NaN'),
		       candidates_evaluated, singular_rejected, duration_ms, ranked, created_at
		FROM replication.runs
		WHERE run_id = $1`, id,
	).Scan(
		&res.IndexSymbol, &res.SubsetSize, &res.DatasetHash,
		&res.Accepted.Offset, &positions, &res.Model.RSS, &res.Model.RSquared,
		&res.CandidatesEvaluated, &res.SingularRejected, &durationMS, &res.Ranked, &res.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	res.RunID = id.String()
	res.Duration = time.Duration(durationMS) * time.Millisecond
	res.Accepted.Positions = fromInt32s(positions)

	rows, err := r.pool.Query(ctx, `
		SELECT position, symbol, coefficient, weight
		FROM replication.run_weights
		WHERE run_id = $1
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query weights: %w", err)
	}
	defer rows.Close()

	var weights []weightRow
	for rows.Next() {
		var w weightRow
		if err := rows.Scan(&w.position, &w.symbol, &w.coefficient, &w.weight); err != nil {
			return nil, fmt.Errorf("failed to scan weight: %w", err)
		}
		weights = append(weights, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weights: %w", err)
	}

	applyWeightRows(&res, weights)
	return &res, nil
}

// ListByIndex returns the latest runs for an index symbol
func (r *RunRepository) ListByIndex(ctx context.Context, indexSymbol string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT run_id, index_symbol, subset_size, dataset_hash, COALESCE(r_squared, 'NaN'), created_at
		FROM replication.runs
		WHERE index_symbol = $1
		ORDER BY created_at DESC
		LIMIT $2`, indexSymbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s  RunSummary
			id uuid.UUID
		)
		if err := rows.Scan(&id, &s.IndexSymbol, &s.SubsetSize, &s.DatasetHash, &s.RSquared, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.RunID = id.String()
		out = append(out, s)
	}
	return out, rows.Err()
}

type weightRow struct {
	position    int
	symbol      string
	coefficient float64
	weight      float64
}

// weightRows flattens the accepted model, one row per subset slot
func weightRows(result *contracts.ReplicationResult) []weightRow {
	rows := make([]weightRow, len(result.Model.Coefficients))
	for i, c := range result.Model.Coefficients {
		w, _ := result.Weights.Get(c.Symbol)
		rows[i] = weightRow{position: i, symbol: c.Symbol, coefficient: c.Value, weight: w}
	}
	return rows
}

// applyWeightRows rebuilds coefficients, weights and accepted symbols
func applyWeightRows(res *contracts.ReplicationResult, rows []weightRow) {
	res.Model.Coefficients = make([]contracts.Coefficient, len(rows))
	res.Weights = make(contracts.WeightsTable, len(rows))
	res.Accepted.Symbols = make([]string, len(rows))
	for i, w := range rows {
		res.Model.Coefficients[i] = contracts.Coefficient{Symbol: w.symbol, Value: w.coefficient}
		res.Weights[i] = contracts.Weight{Symbol: w.symbol, Value: w.weight}
		res.Accepted.Symbols[i] = w.symbol
	}
}

func toInt32s(xs []int) []int32 {
	out := make([]int32, len(xs))
	for i, x := range xs {
		out[i] = int32(x)
	}
	return out
}

func fromInt32s(xs []int32) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[i] = int(x)
	}
	return out
}
