package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/internal/replication"
	"github.com/wonny/indexrep/internal/report"
	"github.com/wonny/indexrep/pkg/logger"
	"github.com/wonny/indexrep/pkg/redis"
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Recorder receives search and cache telemetry
type Recorder interface {
	replication.Recorder
	ObserveCacheLookup(result string)
}

// Request describes one replication run
type Request struct {
	Source      contracts.PriceSource
	Query       contracts.PriceQuery
	IndexSymbol string
	SubsetSize  int
	Search      replication.SearchConfig
	ChartPath   string // "" = no chart
	Save        bool   // persist to the run store when one is configured
}

// Response is the accepted model plus reporting output
type Response struct {
	Result    *contracts.ReplicationResult `json:"result"`
	Tracking  report.TrackingStats         `json:"tracking"`
	ChartPath string                       `json:"chart_path,omitempty"`
	Cached    bool                         `json:"cached"`
	Saved     bool                         `json:"saved"`
}

// Service runs replication requests end to end
// ⭐ SSOT: 로드 → 캐시 → 탐색 → 저장 → 리포트 흐름은 여기서만
type Service struct {
	cache    contracts.ResultCache
	cacheTTL time.Duration
	store    contracts.RunStore
	recorder Recorder
	logger   *logger.Logger
}

// Option configures a Service
type Option func(*Service)

// WithCache enables result caching
func WithCache(cache contracts.ResultCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithStore enables run persistence
func WithStore(store contracts.RunStore) Option {
	return func(s *Service) { s.store = store }
}

// WithRecorder sets the telemetry recorder
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService creates a new service
func NewService(log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{logger: log, cacheTTL: redis.DefaultResultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasStore reports whether runs can be persisted and fetched
func (s *Service) HasStore() bool {
	return s.store != nil
}

// Get fetches a stored run
func (s *Service) Get(ctx context.Context, runID string) (*contracts.ReplicationResult, error) {
	if s.store == nil {
		return nil, errors.New("no run store configured")
	}
	return s.store.Get(ctx, runID)
}

// Run loads prices, searches (or reuses a cached result), persists and reports
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	if req.Source == nil {
		return nil, errors.New("request has no price source")
	}

	matrix, err := req.Source.Load(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("load prices from %s: %w", req.Source.Name(), err)
	}
	datasetHash := matrix.Hash()

	log := s.logger.WithFields(map[string]interface{}{
		"source": req.Source.Name(),
		"index":  req.IndexSymbol,
		"n":      req.SubsetSize,
	})

	resp := &Response{}
	key := cacheKey(datasetHash, req)

	resp.Result = s.lookup(ctx, key, log)
	if resp.Result != nil {
		resp.Cached = true
		log.WithField("run_id", resp.Result.RunID).Info("Reusing cached replication result")
	} else {
		var opts []replication.Option
		if s.recorder != nil {
			opts = append(opts, replication.WithRecorder(s.recorder))
		}
		searcher := replication.NewSearcher(req.Search, s.logger, opts...)

		result, err := searcher.Search(ctx, matrix, req.IndexSymbol, req.SubsetSize)
		if err != nil {
			return nil, err
		}
		result.RunID = uuid.NewString()
		result.DatasetHash = datasetHash
		resp.Result = result

		if s.cache != nil {
			if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
				log.WithError(err).Warn("Failed to cache replication result")
			}
		}
	}

	if req.Save && s.store != nil && !resp.Cached {
		if err := s.store.Save(ctx, resp.Result); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		resp.Saved = true
	}

	index, _ := matrix.Column(req.IndexSymbol)
	portfolio, err := report.PortfolioSeries(matrix, resp.Result.Weights)
	if err != nil {
		return nil, err
	}
	if resp.Tracking, err = report.Track(index, portfolio); err != nil {
		return nil, err
	}

	if req.ChartPath != "" {
		if err := report.RenderChart(req.ChartPath, matrix, resp.Result); err != nil {
			return nil, fmt.Errorf("render chart: %w", err)
		}
		resp.ChartPath = req.ChartPath
	}

	log.WithFields(map[string]interface{}{
		"run_id":   resp.Result.RunID,
		"symbols":  resp.Result.Accepted.Symbols,
		"rmse":     resp.Tracking.RMSE,
		"cached":   resp.Cached,
		"saved":    resp.Saved,
		"duration": resp.Result.Duration,
	}).Info("Replication completed")

	return resp, nil
}

func (s *Service) lookup(ctx context.Context, key string, log *logger.Logger) *contracts.ReplicationResult {
	if s.cache == nil {
		return nil
	}

	var cached contracts.ReplicationResult
	found, err := s.cache.Get(ctx, key, &cached)
	switch {
	case err != nil:
		s.observeCache(CacheError)
		log.WithError(err).Warn("Result cache lookup failed")
		return nil
	case !found:
		s.observeCache(CacheMiss)
		return nil
	default:
		s.observeCache(CacheHit)
		return &cached
	}
}

func (s *Service) observeCache(result string) {
	if s.recorder != nil {
		s.recorder.ObserveCacheLookup(result)
	}
}

// cacheKey folds a non-default condition bound into the dataset part of the key
func cacheKey(datasetHash string, req Request) string {
	cond := req.Search.MaxCondition
	if cond > 1 && cond != replication.DefaultMaxCondition {
		datasetHash = fmt.Sprintf("%s~c%g", datasetHash, cond)
	}
	return redis.ReplicationKey(datasetHash, req.IndexSymbol, req.SubsetSize)
}
