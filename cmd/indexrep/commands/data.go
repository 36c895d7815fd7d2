package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/indexrep/internal/prices"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "가격 데이터 관리",
	Long: `PostgreSQL 가격 테이블을 관리합니다.

Subcommands:
  migrate  - 스키마 생성 (data, replication)
  import   - Date,Symbol,Close CSV 를 data.daily_prices 로 적재

Example:
  go run ./cmd/indexrep data migrate
  go run ./cmd/indexrep data import dow_jones_historical_prices.csv`,
}

var (
	dataMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "스키마 생성",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}

	dataImportCmd = &cobra.Command{
		Use:   "import FILE",
		Short: "CSV 가격 적재",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataMigrateCmd)
	dataCmd.AddCommand(dataImportCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rt, err := newRuntime(ctx, runtimeOptions{requireDB: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	PrintSuccess(cmd.OutOrStdout(), "Schema is up to date")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := args[0]

	rows, err := prices.ReadFile(path)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(10 * time.Minute)
	defer cancel()

	rt, err := newRuntime(ctx, runtimeOptions{requireDB: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	PrintHeader(out, "Price Import")
	PrintKeyValue(out, "File", path, 8)
	PrintKeyValue(out, "Rows", fmt.Sprintf("%d", len(rows)), 8)
	PrintSeparator(out)

	start := time.Now()
	written, err := prices.NewImporter(rt.db.Pool, rt.log).Import(ctx, rows)
	if err != nil {
		return fmt.Errorf("import %s (%d rows written): %w", path, written, err)
	}

	PrintSuccess(out, fmt.Sprintf("Imported %d rows in %.2fs", written, time.Since(start).Seconds()))
	return nil
}
