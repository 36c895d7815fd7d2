package contracts

import (
	"context"
	"time"
)

// PriceQuery narrows what a PriceSource loads
type PriceQuery struct {
	From    time.Time // zero = unbounded
	To      time.Time // zero = unbounded
	Symbols []string  // empty = all
}

// PriceSource loads a pivoted price matrix
// ⭐ SSOT: 가격 로딩 인터페이스 (CSV, Postgres)
type PriceSource interface {
	Name() string
	Load(ctx context.Context, q PriceQuery) (*PriceMatrix, error)
}

// RunStore persists accepted replication results
type RunStore interface {
	Save(ctx context.Context, result *ReplicationResult) error
	Get(ctx context.Context, runID string) (*ReplicationResult, error)
}

// ResultCache caches replication results keyed by request fingerprint
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}
