package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "indexrep",
	Short: "인덱스 복제 포트폴리오 탐색기",
	Long: `indexrep Unified CLI

상관관계 순위 → 후보 윈도우 열거 → 무절편 OLS 로
지수를 복제하는 n 종목 포트폴리오를 찾습니다.

Usage:
  go run ./cmd/indexrep [command]

Examples:
  go run ./cmd/indexrep replicate 3 .DJI dow_jones_historical_prices.csv
  go run ./cmd/indexrep replicate --strategy configs/strategy/dow_jones.yaml
  go run ./cmd/indexrep api
  go run ./cmd/indexrep data import prices.csv
  go run ./cmd/indexrep test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production), overrides ENV")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
