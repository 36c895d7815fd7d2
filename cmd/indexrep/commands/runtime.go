package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/internal/orchestrator"
	"github.com/wonny/indexrep/internal/prices"
	"github.com/wonny/indexrep/internal/store"
	"github.com/wonny/indexrep/internal/strategyconfig"
	"github.com/wonny/indexrep/pkg/config"
	"github.com/wonny/indexrep/pkg/database"
	"github.com/wonny/indexrep/pkg/logger"
	"github.com/wonny/indexrep/pkg/metrics"
	"github.com/wonny/indexrep/pkg/redis"
)

const cachePrefix = "indexrep"

// runtime holds the dependencies every command shares
type runtime struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB  // nil without DATABASE_URL
	redis    *redis.Client // disabled unless REDIS_ENABLED
	recorder *metrics.Recorder
	service  *orchestrator.Service
}

type runtimeOptions struct {
	requireDB bool
	metrics   bool
}

// loadConfig reads the environment and applies global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newRuntime wires config, logger, database, redis and the orchestrator
func newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: logger.New(cfg)}

	if cfg.HasDatabase() {
		db, err := database.Connect(ctx, cfg.Database)
		switch {
		case err == nil:
			rt.db = db
			rt.log.Info("Connected to database")
		case opts.requireDB:
			return nil, fmt.Errorf("connect to database: %w", err)
		default:
			rt.log.WithError(err).Warn("Database unavailable, runs will not be persisted")
		}
	} else if opts.requireDB {
		return nil, fmt.Errorf("DATABASE_URL is required for this command")
	}

	rt.redis, err = redis.New(cfg)
	if err != nil {
		rt.log.WithError(err).Warn("Redis unavailable, result cache disabled")
		rt.redis = redis.Wrap(nil)
	}

	var serviceOpts []orchestrator.Option
	if rt.redis.Enabled() {
		serviceOpts = append(serviceOpts, orchestrator.WithCache(redis.NewCache(rt.redis, cachePrefix), cfg.Redis.TTL))
	}
	if rt.db != nil {
		serviceOpts = append(serviceOpts, orchestrator.WithStore(store.NewRunRepository(rt.db.Pool)))
	}
	if opts.metrics && cfg.MetricsEnabled {
		rt.recorder = metrics.New()
		serviceOpts = append(serviceOpts, orchestrator.WithRecorder(rt.recorder))
	}
	rt.service = orchestrator.NewService(rt.log, serviceOpts...)

	return rt, nil
}

// Close releases connections
func (rt *runtime) Close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.db != nil {
		rt.db.Close()
	}
}

func (rt *runtime) pool() *pgxpool.Pool {
	if rt.db == nil {
		return nil
	}
	return rt.db.Pool
}

// sources builds a price source by kind and file
func (rt *runtime) sources(kind, file string) (contracts.PriceSource, error) {
	return prices.NewSource(kind, file, rt.pool(), rt.log)
}

// strategySources builds the source a strategy file points at
func (rt *runtime) strategySources(src strategyconfig.Source) (contracts.PriceSource, error) {
	return rt.sources(src.Kind, src.File)
}

// signalContext is cancelled on Ctrl+C, SIGTERM or after timeout
func signalContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
