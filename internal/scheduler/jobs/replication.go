package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/internal/orchestrator"
	"github.com/wonny/indexrep/internal/replication"
	"github.com/wonny/indexrep/internal/scheduler"
	"github.com/wonny/indexrep/internal/strategyconfig"
	"github.com/wonny/indexrep/pkg/logger"
)

// SourceFactory builds the price source a strategy points at
type SourceFactory func(src strategyconfig.Source) (contracts.PriceSource, error)

// ReplicationJob re-runs a strategy file on its cron schedule
type ReplicationJob struct {
	path    string
	cfg     *strategyconfig.Config
	service *orchestrator.Service
	sources SourceFactory
	logger  *logger.Logger
}

// NewReplicationJob loads the strategy; it must define schedule.cron
func NewReplicationJob(path string, service *orchestrator.Service, sources SourceFactory, log *logger.Logger) (*ReplicationJob, error) {
	cfg, _, err := strategyconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", path, err)
	}
	if cfg.Schedule.Cron == "" {
		return nil, fmt.Errorf("strategy %s has no schedule.cron", cfg.Meta.StrategyID)
	}
	if log == nil {
		log = logger.Nop()
	}

	return &ReplicationJob{
		path:    path,
		cfg:     cfg,
		service: service,
		sources: sources,
		logger:  log,
	}, nil
}

// Name returns the job name
func (j *ReplicationJob) Name() string {
	return "replication:" + j.cfg.Meta.StrategyID
}

// Schedule returns the strategy's cron expression in its timezone
func (j *ReplicationJob) Schedule() string {
	if j.cfg.Schedule.Timezone != "" {
		return fmt.Sprintf("CRON_TZ=%s %s", j.cfg.Schedule.Timezone, j.cfg.Schedule.Cron)
	}
	return j.cfg.Schedule.Cron
}

// MaxRetries returns schedule.max_retries
func (j *ReplicationJob) MaxRetries() int {
	return j.cfg.Schedule.MaxRetries
}

// Run reloads the strategy file (edits apply on the next tick) and replicates
func (j *ReplicationJob) Run(ctx context.Context) error {
	cfg, yamlData, err := strategyconfig.Load(j.path)
	if err != nil {
		return scheduler.Permanent(fmt.Errorf("reload strategy: %w", err))
	}

	src, err := j.sources(cfg.Source)
	if err != nil {
		return scheduler.Permanent(err)
	}
	query, err := cfg.Source.Query()
	if err != nil {
		return scheduler.Permanent(err)
	}

	req := orchestrator.Request{
		Source:      src,
		Query:       query,
		IndexSymbol: cfg.IndexSymbol,
		SubsetSize:  cfg.Search.SubsetSize,
		Search:      cfg.Search.SearchConfig(),
		Save:        true,
	}
	if !cfg.Report.NoChart {
		req.ChartPath = cfg.Report.ChartPath
	}

	resp, err := j.service.Run(ctx, req)
	if err != nil {
		// 같은 입력 → 같은 결과: 설정 오류/탐색 실패는 재시도 무의미
		if replication.IsConfiguration(err) || errors.Is(err, replication.ErrSearchExhausted) ||
			errors.Is(err, replication.ErrCandidateLimit) {
			return scheduler.Permanent(err)
		}
		return err
	}

	snapshot, err := strategyconfig.NewRunSnapshot(cfg, yamlData, resp.Result.DatasetHash)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"strategy":    snapshot.StrategyID,
		"config_hash": snapshot.ConfigHash,
		"run_id":      resp.Result.RunID,
		"weights":     resp.Result.Weights.Lines()[1:],
	}).Info("Scheduled replication finished")

	return nil
}
