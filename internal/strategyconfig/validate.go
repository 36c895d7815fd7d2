package strategyconfig

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// CronParser accepts the seconds field, same as the scheduler
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if cfg.IndexSymbol == "" {
		return ValidationError{"index_symbol", "required"}
	}

	// === Source ===
	switch cfg.Source.Kind {
	case "csv":
		if cfg.Source.File == "" {
			return ValidationError{"source.file", "required when kind is csv"}
		}
	case "http":
		if !strings.HasPrefix(cfg.Source.File, "http://") && !strings.HasPrefix(cfg.Source.File, "https://") {
			return ValidationError{"source.file", "must be an http(s) URL when kind is http"}
		}
	case "postgres":
	default:
		return ValidationError{"source.kind", "must be csv, postgres or http"}
	}

	q, err := cfg.Source.Query()
	if err != nil {
		return ValidationError{"source", err.Error()}
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return ValidationError{"source", "from must not be after to"}
	}
	if len(cfg.Source.Symbols) > 0 && !slices.Contains(cfg.Source.Symbols, cfg.IndexSymbol) {
		return ValidationError{"source.symbols", "must include index_symbol"}
	}

	// === Search ===
	if cfg.Search.SubsetSize < 1 {
		return ValidationError{"search.subset_size", "must be >= 1"}
	}
	if cfg.Search.Workers < 0 {
		return ValidationError{"search.workers", "must be >= 0"}
	}
	if cfg.Search.MaxCandidates < 0 {
		return ValidationError{"search.max_candidates", "must be >= 0"}
	}
	if cfg.Search.MaxCondition != 0 && cfg.Search.MaxCondition <= 1 {
		return ValidationError{"search.max_condition", "must be > 1"}
	}
	if n := len(cfg.Source.Symbols); n > 0 && cfg.Search.SubsetSize > n-1 {
		return ValidationError{"search.subset_size", fmt.Sprintf("exceeds %d listed non-index symbols", n-1)}
	}

	// === Schedule ===
	if cfg.Schedule.Cron != "" {
		if _, err := CronParser.Parse(cfg.Schedule.Cron); err != nil {
			return ValidationError{"schedule.cron", err.Error()}
		}
	}
	if cfg.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
			return ValidationError{"schedule.timezone", err.Error()}
		}
	}
	if cfg.Schedule.MaxRetries < 0 {
		return ValidationError{"schedule.max_retries", "must be >= 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 후보 수 무제한 + 큰 n → 탐색 시간 폭증 가능
	if cfg.Search.MaxCandidates == 0 && cfg.Search.SubsetSize >= 8 {
		warnings = append(warnings, Warning{
			Code:    "UNBOUNDED_SEARCH",
			Message: "subset_size >= 8 without max_candidates: search may take long",
		})
	}

	if cfg.Source.Kind == "postgres" && cfg.Source.From == "" {
		warnings = append(warnings, Warning{
			Code:    "FULL_HISTORY",
			Message: "no source.from: the whole price history is loaded",
		})
	}

	if cfg.Report.NoChart && cfg.Report.ChartPath != "" {
		warnings = append(warnings, Warning{
			Code:    "CHART_PATH_IGNORED",
			Message: "report.chart_path is set but no_chart is true",
		})
	}

	return warnings
}
