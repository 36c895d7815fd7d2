package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/indexrep/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "PostgreSQL 연결 테스트",
	Long: `데이터베이스 연결을 테스트하고 풀 통계를 표시합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- 데이터베이스 연결 생성
- Health Check 실행
- Connection Pool 통계 표시

Example:
  go run ./cmd/indexrep test-db
  go run ./cmd/indexrep test-db --env production`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== indexrep Database Connection Test ===")

	// Load configuration
	fmt.Fprintln(out, "Loading configuration...")
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	PrintSuccess(out, fmt.Sprintf("Config loaded (ENV: %s)", cfg.Env))
	fmt.Fprintf(out, "   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Create database connection
	fmt.Fprintln(out, "Connecting to database...")
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	PrintSuccess(out, "Database connection established")

	// Get health status
	fmt.Fprintln(out, "Getting health status...")
	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	PrintSuccess(out, "Health Check Results:")
	PrintKeyValue(out, "Healthy", fmt.Sprintf("%v", status.Healthy), 20)
	PrintKeyValue(out, "Response Time", status.ResponseTime.String(), 20)
	PrintKeyValue(out, "Timestamp", status.Timestamp.Format(time.RFC3339), 20)

	// Pool statistics
	fmt.Fprintln(out, "\n📊 Connection Pool Statistics:")
	PrintKeyValue(out, "Max Connections", fmt.Sprintf("%d", status.Stats.MaxConns), 20)
	PrintKeyValue(out, "Total Connections", fmt.Sprintf("%d", status.Stats.TotalConns), 20)
	PrintKeyValue(out, "Acquired Connections", fmt.Sprintf("%d", status.Stats.AcquiredConns), 20)
	PrintKeyValue(out, "Idle Connections", fmt.Sprintf("%d", status.Stats.IdleConns), 20)
	PrintKeyValue(out, "Acquire Count", fmt.Sprintf("%d", status.Stats.AcquireCount), 20)
	PrintKeyValue(out, "Acquire Duration", status.Stats.AcquireDuration.String(), 20)

	fmt.Fprintln(out)
	PrintSuccess(out, "All tests passed!")
	return nil
}
