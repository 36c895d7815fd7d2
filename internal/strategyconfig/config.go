package strategyconfig

import (
	"fmt"
	"time"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/internal/replication"
)

// Config는 하나의 인덱스 복제 작업 설정
type Config struct {
	Meta        Meta     `yaml:"meta" json:"meta"`
	Source      Source   `yaml:"source" json:"source"`
	IndexSymbol string   `yaml:"index_symbol" json:"index_symbol"`
	Search      Search   `yaml:"search" json:"search"`
	Report      Report   `yaml:"report" json:"report"`
	Schedule    Schedule `yaml:"schedule" json:"schedule"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID  string `yaml:"strategy_id" json:"strategy_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Source 가격 데이터 위치
type Source struct {
	Kind    string   `yaml:"kind" json:"kind"` // csv, postgres, http
	File    string   `yaml:"file,omitempty" json:"file,omitempty"`
	From    string   `yaml:"from,omitempty" json:"from,omitempty"` // YYYY-MM-DD
	To      string   `yaml:"to,omitempty" json:"to,omitempty"`     // YYYY-MM-DD
	Symbols []string `yaml:"symbols,omitempty" json:"symbols,omitempty"`
}

// Search 탐색 파라미터
type Search struct {
	SubsetSize    int     `yaml:"subset_size" json:"subset_size"`
	Workers       int     `yaml:"workers,omitempty" json:"workers,omitempty"`
	MaxCandidates int     `yaml:"max_candidates,omitempty" json:"max_candidates,omitempty"`
	MaxCondition  float64 `yaml:"max_condition,omitempty" json:"max_condition,omitempty"`
}

// Report 출력 설정
type Report struct {
	ChartPath string `yaml:"chart_path,omitempty" json:"chart_path,omitempty"`
	NoChart   bool   `yaml:"no_chart,omitempty" json:"no_chart,omitempty"`
}

// Schedule 반복 실행 (scheduler 전용)
type Schedule struct {
	Cron       string `yaml:"cron,omitempty" json:"cron,omitempty"` // 초 필드 포함 6자리
	Timezone   string `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
}

const dateLayout = "2006-01-02"

// Query converts the source section to a price query
func (s Source) Query() (contracts.PriceQuery, error) {
	q := contracts.PriceQuery{Symbols: s.Symbols}

	if s.From != "" {
		t, err := time.Parse(dateLayout, s.From)
		if err != nil {
			return q, fmt.Errorf("source.from: %w", err)
		}
		q.From = t
	}
	if s.To != "" {
		t, err := time.Parse(dateLayout, s.To)
		if err != nil {
			return q, fmt.Errorf("source.to: %w", err)
		}
		q.To = t
	}
	return q, nil
}

// SearchConfig converts the search section, falling back to defaults for zero values
func (s Search) SearchConfig() replication.SearchConfig {
	cfg := replication.DefaultSearchConfig()
	if s.Workers > 0 {
		cfg.Workers = s.Workers
	}
	if s.MaxCandidates > 0 {
		cfg.MaxCandidates = s.MaxCandidates
	}
	if s.MaxCondition > 0 {
		cfg.MaxCondition = s.MaxCondition
	}
	return cfg
}

// RunSnapshot ties a run to the exact strategy file that produced it
type RunSnapshot struct {
	ConfigHash  string    `json:"config_hash"`
	ConfigYAML  string    `json:"config_yaml"`
	StrategyID  string    `json:"strategy_id"`
	DatasetHash string    `json:"dataset_hash"`
	CreatedAt   time.Time `json:"created_at"`
}
