package replication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/pkg/logger"
)

// Candidate outcomes reported to the Recorder
const (
	OutcomeAccepted = "accepted"
	OutcomeNegative = "negative"
	OutcomeSingular = "singular"
)

// Search statuses reported to the Recorder
const (
	StatusAccepted  = "accepted"
	StatusExhausted = "exhausted"
	StatusLimited   = "limited"
	StatusInvalid   = "invalid"
	StatusCanceled  = "canceled"
	StatusFailed    = "failed"
)

// Recorder receives search telemetry
type Recorder interface {
	ObserveCandidate(outcome string)
	ObserveSearch(status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCandidate(string)              {}
func (nopRecorder) ObserveSearch(string, time.Duration) {}

// SearchConfig defines search parameters
type SearchConfig struct {
	Workers       int     // concurrent candidate fits (1 = sequential)
	MaxCandidates int     // 0 = unlimited
	MaxCondition  float64 // solver condition bound
}

// DefaultSearchConfig returns default configuration
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Workers:       1,
		MaxCandidates: 0,
		MaxCondition:  DefaultMaxCondition,
	}
}

// Searcher drives the ranked-subset regression search
// ⭐ SSOT: 후보 탐색/채택 로직은 여기서만 (순수 계산, I/O 없음)
type Searcher struct {
	config   SearchConfig
	ranker   *CorrelationRanker
	solver   *RegressionSolver
	logger   *logger.Logger
	recorder Recorder
}

// Option configures a Searcher
type Option func(*Searcher)

// WithRecorder sets the telemetry recorder
func WithRecorder(r Recorder) Option {
	return func(s *Searcher) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewSearcher creates a new searcher
func NewSearcher(config SearchConfig, log *logger.Logger, opts ...Option) *Searcher {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Searcher{
		config:   config,
		ranker:   NewCorrelationRanker(),
		solver:   NewRegressionSolver(config.MaxCondition),
		logger:   log,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type evaluation struct {
	candidate contracts.Candidate
	model     *contracts.RegressionResult
	err       error
}

// Search finds the first candidate subset of size n whose fitted coefficients are all non-negative
func (s *Searcher) Search(ctx context.Context, matrix *contracts.PriceMatrix, indexSymbol string, n int) (*contracts.ReplicationResult, error) {
	start := time.Now()

	result, err := s.search(ctx, matrix, indexSymbol, n)

	status := StatusAccepted
	switch {
	case err == nil:
	case IsConfiguration(err):
		status = StatusInvalid
	case errors.Is(err, ErrSearchExhausted):
		status = StatusExhausted
	case errors.Is(err, ErrCandidateLimit):
		status = StatusLimited
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = StatusCanceled
	default:
		status = StatusFailed
	}
	s.recorder.ObserveSearch(status, time.Since(start))

	if result != nil {
		result.Duration = time.Since(start)
	}
	return result, err
}

func (s *Searcher) search(ctx context.Context, matrix *contracts.PriceMatrix, indexSymbol string, n int) (*contracts.ReplicationResult, error) {
	if n < 1 {
		return nil, configError{fmt.Errorf("%w: n=%d must be at least 1", ErrInvalidSubsetSize, n)}
	}

	ranked, err := s.ranker.Rank(matrix, indexSymbol)
	if err != nil {
		return nil, err
	}

	m := len(ranked)
	if n > m {
		return nil, configError{fmt.Errorf("%w: n=%d exceeds available asset count %d", ErrInvalidSubsetSize, n, m)}
	}

	index, _ := matrix.Column(indexSymbol)
	columns := make([][]float64, m)
	for i, asset := range ranked {
		columns[i], _ = matrix.Column(asset.Symbol)
	}

	log := s.logger.WithFields(map[string]interface{}{
		"index":   indexSymbol,
		"n":       n,
		"assets":  m,
		"workers": s.config.Workers,
	})
	log.Info("Replication search started")

	enum := NewEnumerator(m, n)
	evaluated, singular := 0, 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batchSize := s.config.Workers
		limited := false
		if s.config.MaxCandidates > 0 {
			remaining := s.config.MaxCandidates - evaluated
			limited = remaining <= 0
			batchSize = min(batchSize, max(remaining, 1))
		}

		batch := make([]contracts.Candidate, 0, batchSize)
		for len(batch) < batchSize {
			offset, window, ok := enum.Next()
			if !ok {
				break
			}
			batch = append(batch, materialise(ranked, offset, window))
		}
		// 한도 도달은 아직 후보가 남아 있을 때만 보고
		if limited && len(batch) > 0 {
			log.WithField("evaluated", evaluated).Warn("Candidate limit reached")
			return nil, fmt.Errorf("%w: %d candidates evaluated", ErrCandidateLimit, evaluated)
		}
		if len(batch) == 0 {
			log.WithFields(map[string]interface{}{
				"evaluated": evaluated,
				"singular":  singular,
			}).Warn("Search space exhausted")
			return nil, fmt.Errorf("%w: %d candidates evaluated across %d start offsets",
				ErrSearchExhausted, evaluated, m-n+1)
		}

		evals, err := s.evaluateBatch(ctx, index, columns, batch)
		if err != nil {
			return nil, err
		}

		// 배치 내 순서대로 판정 → 순차 실행과 동일한 결과
		for _, ev := range evals {
			evaluated++

			if ev.err != nil {
				if !errors.Is(ev.err, ErrSingularModel) {
					return nil, ev.err
				}
				singular++
				s.recorder.ObserveCandidate(OutcomeSingular)
				log.WithField("symbols", ev.candidate.Symbols).Debugf("Candidate rejected: %v", ev.err)
				continue
			}

			if neg := ev.model.NegativeCount(); neg > 0 {
				s.recorder.ObserveCandidate(OutcomeNegative)
				log.WithFields(map[string]interface{}{
					"symbols":  ev.candidate.Symbols,
					"negative": neg,
				}).Debug("Candidate rejected")
				continue
			}

			s.recorder.ObserveCandidate(OutcomeAccepted)
			log.WithFields(map[string]interface{}{
				"symbols":   ev.candidate.Symbols,
				"offset":    ev.candidate.Offset,
				"evaluated": evaluated,
			}).Info("Candidate accepted")

			return &contracts.ReplicationResult{
				IndexSymbol:         indexSymbol,
				SubsetSize:          n,
				Ranked:              ranked,
				Accepted:            ev.candidate,
				Model:               *ev.model,
				Weights:             NewWeightsTable(ev.model),
				CandidatesEvaluated: evaluated,
				SingularRejected:    singular,
				CreatedAt:           time.Now(),
			}, nil
		}
	}
}

// evaluateBatch fits every candidate of the batch, concurrently when the batch has more than one
func (s *Searcher) evaluateBatch(ctx context.Context, index []float64, columns [][]float64, batch []contracts.Candidate) ([]evaluation, error) {
	evals := make([]evaluation, len(batch))

	if len(batch) == 1 {
		evals[0] = s.evaluate(index, columns, batch[0])
		return evals, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			evals[i] = s.evaluate(index, columns, batch[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return evals, nil
}

func (s *Searcher) evaluate(index []float64, columns [][]float64, cand contracts.Candidate) evaluation {
	cols := make([][]float64, len(cand.Positions))
	for i, pos := range cand.Positions {
		cols[i] = columns[pos]
	}
	model, err := s.solver.Fit(index, cand.Symbols, cols)
	return evaluation{candidate: cand, model: model, err: err}
}

func materialise(ranked []contracts.RankedAsset, offset int, window []int) contracts.Candidate {
	symbols := make([]string, len(window))
	for i, pos := range window {
		symbols[i] = ranked[pos].Symbol
	}
	return contracts.Candidate{Offset: offset, Positions: window, Symbols: symbols}
}
