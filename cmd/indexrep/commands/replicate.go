package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/internal/orchestrator"
	"github.com/wonny/indexrep/internal/prices"
	"github.com/wonny/indexrep/internal/replication"
	"github.com/wonny/indexrep/internal/report"
	"github.com/wonny/indexrep/internal/strategyconfig"
)

// replicateCmd represents the replicate command
var replicateCmd = &cobra.Command{
	Use:   "replicate [N INDEX FILE]",
	Short: "지수 복제 포트폴리오 탐색",
	Long: `가격 파일에서 지수를 복제하는 N 종목 포트폴리오를 찾습니다.

이 명령어는:
- Date,Symbol,Close CSV 로드 후 피벗
- 지수와의 상관관계로 종목 순위 산정
- 후보 윈도우마다 무절편 OLS, 모든 계수 ≥ 0 인 첫 모델 채택
- "Symbol, Weight" 표 출력 및 비교 차트 저장

Example:
  go run ./cmd/indexrep replicate 3 .DJI dow_jones_historical_prices.csv
  go run ./cmd/indexrep replicate 5 .DJI prices.csv --workers 4 --no-chart
  go run ./cmd/indexrep replicate --strategy configs/strategy/dow_jones.yaml`,
	Args: func(cmd *cobra.Command, args []string) error {
		if replicateStrategy != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(3)(cmd, args)
	},
	RunE: runReplicate,
}

var (
	replicateStrategy      string
	replicateChart         string
	replicateNoChart       bool
	replicateWorkers       int
	replicateMaxCandidates int
	replicateSave          bool
)

func init() {
	rootCmd.AddCommand(replicateCmd)

	// Flags
	replicateCmd.Flags().StringVar(&replicateStrategy, "strategy", "", "전략 YAML 파일 (인자 대신 사용)")
	replicateCmd.Flags().StringVar(&replicateChart, "chart", "", "차트 저장 경로 (기본: CHART_PATH)")
	replicateCmd.Flags().BoolVar(&replicateNoChart, "no-chart", false, "차트 생성 생략")
	replicateCmd.Flags().IntVar(&replicateWorkers, "workers", 0, "동시 후보 평가 수 (기본: SEARCH_WORKERS)")
	replicateCmd.Flags().IntVar(&replicateMaxCandidates, "max-candidates", 0, "평가 후보 상한 (0 = 무제한)")
	replicateCmd.Flags().BoolVar(&replicateSave, "save", false, "결과를 DB 에 저장")
}

func runReplicate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, runtimeOptions{requireDB: replicateSave})
	if err != nil {
		return err
	}
	defer rt.Close()

	req, err := buildReplicateRequest(rt, args)
	if err != nil {
		return err
	}

	resp, err := rt.service.Run(ctx, req)
	if err != nil {
		// 탐색 실패는 메시지만 출력 (정상 종료)
		if errors.Is(err, replication.ErrSearchExhausted) || errors.Is(err, replication.ErrCandidateLimit) {
			fmt.Fprintln(cmd.OutOrStdout(), contracts.NewOutcome(nil, err).Message)
			return nil
		}
		return err
	}

	out := cmd.OutOrStdout()
	if err := report.WriteWeights(out, resp.Result.Weights); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintln(out)
		PrintKeyValue(out, "Run ID", resp.Result.RunID, 12)
		PrintKeyValue(out, "Candidates", strconv.Itoa(resp.Result.CandidatesEvaluated), 12)
		PrintKeyValue(out, "Tracking RMSE", strconv.FormatFloat(resp.Tracking.RMSE, 'f', 4, 64), 12)
		PrintKeyValue(out, "Cached", strconv.FormatBool(resp.Cached), 12)
		PrintKeyValue(out, "Saved", strconv.FormatBool(resp.Saved), 12)
	}
	if resp.ChartPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Chart saved to %s\n", resp.ChartPath)
	}

	return nil
}

// buildReplicateRequest reads either the positional arguments or a strategy file
func buildReplicateRequest(rt *runtime, args []string) (orchestrator.Request, error) {
	var req orchestrator.Request

	if replicateStrategy != "" {
		cfg, _, err := strategyconfig.Load(replicateStrategy)
		if err != nil {
			return req, err
		}
		for _, w := range strategyconfig.Warn(cfg) {
			rt.log.WithField("code", w.Code).Warn(w.Message)
		}

		src, err := rt.strategySources(cfg.Source)
		if err != nil {
			return req, err
		}
		query, err := cfg.Source.Query()
		if err != nil {
			return req, err
		}

		req = orchestrator.Request{
			Source:      src,
			Query:       query,
			IndexSymbol: cfg.IndexSymbol,
			SubsetSize:  cfg.Search.SubsetSize,
			Search:      cfg.Search.SearchConfig(),
			ChartPath:   rt.cfg.Replication.ChartPath,
		}
		if cfg.Report.ChartPath != "" {
			req.ChartPath = cfg.Report.ChartPath
		}
		if cfg.Report.NoChart {
			req.ChartPath = ""
		}
	} else {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return req, fmt.Errorf("N must be an integer, got %q", args[0])
		}
		src, err := rt.sources(prices.KindCSV, args[2])
		if err != nil {
			return req, err
		}

		req = orchestrator.Request{
			Source:      src,
			IndexSymbol: args[1],
			SubsetSize:  n,
			Search: replication.SearchConfig{
				Workers:       rt.cfg.Replication.Workers,
				MaxCandidates: rt.cfg.Replication.MaxCandidates,
				MaxCondition:  rt.cfg.Replication.MaxCondition,
			},
			ChartPath: rt.cfg.Replication.ChartPath,
		}
	}

	// Flags override both forms
	if replicateWorkers > 0 {
		req.Search.Workers = replicateWorkers
	}
	if replicateMaxCandidates > 0 {
		req.Search.MaxCandidates = replicateMaxCandidates
	}
	if replicateChart != "" {
		req.ChartPath = replicateChart
	}
	if replicateNoChart {
		req.ChartPath = ""
	}
	req.Save = replicateSave

	return req, nil
}
