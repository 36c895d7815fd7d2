package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/indexrep/pkg/config"
)

const connectTimeout = 5 * time.Second

// DB wraps the pgxpool.Pool shared by price sources and the run store
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a pool from cfg.Database and verifies it with a ping
func New(cfg *config.Config) (*DB, error) {
	if !cfg.HasDatabase() {
		return nil, fmt.Errorf("DATABASE_URL is not configured")
	}
	return Connect(context.Background(), cfg.Database)
}

// Connect creates a pool from a database section
// ⭐ SSOT: 유일하게 pgxpool.NewWithConfig()를 호출하는 함수
func Connect(ctx context.Context, dbCfg config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(dbCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if dbCfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(dbCfg.MaxConns)
	}
	if dbCfg.MinConns > 0 {
		poolConfig.MinConns = int32(dbCfg.MinConns)
	}
	if dbCfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = dbCfg.MaxConnLifetime
	}
	if dbCfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = dbCfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// HealthStatus is reported by /health and `indexrep test-db`
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Stats        PoolStats     `json:"stats"`
}

// PoolStats is a subset of pgxpool.Stat
type PoolStats struct {
	AcquireCount    int64         `json:"acquire_count"`
	AcquireDuration time.Duration `json:"acquire_duration"`
	AcquiredConns   int32         `json:"acquired_conns"`
	IdleConns       int32         `json:"idle_conns"`
	MaxConns        int32         `json:"max_conns"`
	TotalConns      int32         `json:"total_conns"`
}

// HealthCheck pings and snapshots pool stats
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{Timestamp: time.Now()}

	start := time.Now()
	if err := db.Pool.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)
	status.Stats = db.Stats()
	status.Healthy = true

	return status, nil
}

// Stats returns the current pool statistics
func (db *DB) Stats() PoolStats {
	s := db.Pool.Stat()
	return PoolStats{
		AcquireCount:    s.AcquireCount(),
		AcquireDuration: s.AcquireDuration(),
		AcquiredConns:   s.AcquiredConns(),
		IdleConns:       s.IdleConns(),
		MaxConns:        s.MaxConns(),
		TotalConns:      s.TotalConns(),
	}
}
