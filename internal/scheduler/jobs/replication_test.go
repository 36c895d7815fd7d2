package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/internal/orchestrator"
	"github.com/wonny/indexrep/internal/prices"
	"github.com/wonny/indexrep/internal/scheduler"
	"github.com/wonny/indexrep/internal/strategyconfig"
	"github.com/wonny/indexrep/pkg/logger"
)

func writePrices(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,Symbol,Close\n")
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 20; d++ {
		date := start.AddDate(0, 0, d).Format("2006-01-02")
		x := float64(d)
		a := 100 + 2*x
		bb := 50 + 3*x + float64(d%3)
		fmt.Fprintf(&b, "%s,A,%g\n", date, a)
		fmt.Fprintf(&b, "%s,B,%g\n", date, bb)
		fmt.Fprintf(&b, "%s,C,%g\n", date, 200-x)
		fmt.Fprintf(&b, "%s,.IDX,%g\n", date, 0.6*a+0.4*bb)
	}
	path := filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func writeStrategy(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func csvFactory(src strategyconfig.Source) (contracts.PriceSource, error) {
	return prices.NewSource(src.Kind, src.File, nil, logger.Nop())
}

func strategyYAML(csvPath string, n int, cron string) string {
	return fmt.Sprintf(`
meta:
  strategy_id: idx_test
source:
  kind: csv
  file: %s
index_symbol: .IDX
search:
  subset_size: %d
report:
  no_chart: true
schedule:
  cron: "%s"
  timezone: UTC
  max_retries: 1
`, csvPath, n, cron)
}

func TestReplicationJob_Run(t *testing.T) {
	dir := t.TempDir()
	path := writeStrategy(t, dir, strategyYAML(writePrices(t, dir), 2, "0 0 18 * * *"))

	job, err := NewReplicationJob(path, orchestrator.NewService(logger.Nop()), csvFactory, logger.Nop())
	require.NoError(t, err)

	assert.Equal(t, "replication:idx_test", job.Name())
	assert.Equal(t, "CRON_TZ=UTC 0 0 18 * * *", job.Schedule())
	assert.Equal(t, 1, job.MaxRetries())

	require.NoError(t, job.Run(context.Background()))
}

func TestReplicationJob_InScheduler(t *testing.T) {
	dir := t.TempDir()
	path := writeStrategy(t, dir, strategyYAML(writePrices(t, dir), 2, "0 0 18 * * *"))

	job, err := NewReplicationJob(path, orchestrator.NewService(logger.Nop()), csvFactory, logger.Nop())
	require.NoError(t, err)

	s := scheduler.New(logger.Nop(), scheduler.WithRetry(0, time.Millisecond))
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), job.Name())
	require.NoError(t, err)
	assert.True(t, result.Success, result.Error)
}

func TestReplicationJob_ConfigurationErrorIsPermanent(t *testing.T) {
	dir := t.TempDir()
	path := writeStrategy(t, dir, strategyYAML(writePrices(t, dir), 5, "0 0 18 * * *"))

	job, err := NewReplicationJob(path, orchestrator.NewService(logger.Nop()), csvFactory, logger.Nop())
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.True(t, scheduler.IsPermanent(err))
}

func TestNewReplicationJob_RequiresCron(t *testing.T) {
	dir := t.TempDir()
	body := strings.Replace(strategyYAML(writePrices(t, dir), 2, "x"), "  cron: \"x\"\n", "", 1)
	path := writeStrategy(t, dir, body)

	_, err := NewReplicationJob(path, orchestrator.NewService(nil), csvFactory, nil)
	assert.ErrorContains(t, err, "schedule.cron")
}

func TestNewReplicationJob_InvalidFile(t *testing.T) {
	_, err := NewReplicationJob(filepath.Join(t.TempDir(), "missing.yaml"), orchestrator.NewService(nil), csvFactory, nil)
	assert.Error(t, err)
}
