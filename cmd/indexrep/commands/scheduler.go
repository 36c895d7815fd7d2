package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/indexrep/internal/scheduler"
	"github.com/wonny/indexrep/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `전략 파일의 schedule.cron 에 따라 복제 탐색을 반복 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록될 작업과 다음 실행 시각
  run     - 전략 작업 즉시 실행

Example:
  go run ./cmd/indexrep scheduler start --strategy configs/strategy/dow_jones.yaml
  go run ./cmd/indexrep scheduler list --strategy configs/strategy/dow_jones.yaml
  go run ./cmd/indexrep scheduler run --strategy configs/strategy/dow_jones.yaml`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 --strategy 로 받은 모든 전략을 등록합니다.

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록될 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run",
		Short: "전략 작업 즉시 실행",
		RunE:  runJobsNow,
	}
)

var (
	schedulerStrategies []string
	schedulerRetryDelay time.Duration
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringSliceVar(&schedulerStrategies, "strategy", nil, "전략 YAML 파일 (반복 지정 가능)")
	schedulerCmd.PersistentFlags().DurationVar(&schedulerRetryDelay, "retry-delay", 30*time.Second, "재시도 간격")
	_ = schedulerCmd.MarkPersistentFlagRequired("strategy")
}

// initScheduler registers one replication job per strategy file
func initScheduler(rt *runtime) (*scheduler.Scheduler, error) {
	sched := scheduler.New(rt.log, scheduler.WithRetry(1, schedulerRetryDelay))

	for _, path := range schedulerStrategies {
		job, err := jobs.NewReplicationJob(path, rt.service, rt.strategySources, rt.log)
		if err != nil {
			return nil, err
		}
		if err := sched.AddJob(job); err != nil {
			return nil, fmt.Errorf("register %s: %w", path, err)
		}
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== indexrep Scheduler ===")

	rt, err := newRuntime(context.Background(), runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	sched, err := initScheduler(rt)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start scheduler
	sched.Start()

	fmt.Fprintln(out)
	PrintSuccess(out, "Scheduler started successfully")
	printJobs(out, sched)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	fmt.Fprintln(out, "Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(context.Background(), runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	sched, err := initScheduler(rt)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	printJobs(cmd.OutOrStdout(), sched)
	return nil
}

func runJobsNow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	rt, err := newRuntime(context.Background(), runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	sched, err := initScheduler(rt)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := 0
	for _, name := range sched.Jobs() {
		fmt.Fprintf(out, "Running job: %s\n", name)
		result, err := sched.RunNow(ctx, name)
		if err != nil {
			return err
		}
		if !result.Success {
			failed++
			PrintWarning(out, fmt.Sprintf("%s failed after %d attempt(s): %s", name, result.Attempts, result.Error))
			continue
		}
		PrintSuccess(out, fmt.Sprintf("%s completed in %s", name, result.Duration.Round(time.Millisecond)))
	}

	if failed > 0 {
		return fmt.Errorf("%d job(s) failed", failed)
	}
	return nil
}

func printJobs(out io.Writer, sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	widths := []int{32, 28, 26}

	fmt.Fprintln(out, "\nRegistered jobs:")
	PrintTableHeader(out, []string{"JOB", "SCHEDULE", "NEXT RUN"}, widths)
	for _, name := range sched.Jobs() {
		next := "-"
		if t, ok := sched.NextRun(name); ok {
			next = t.Format(time.RFC3339)
		}
		PrintTableRow(out, []string{name, stats[name].Schedule, next}, widths)
	}
	fmt.Fprintf(out, "\n%s job(s)\n", strconv.Itoa(len(stats)))
}
