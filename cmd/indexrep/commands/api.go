package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/indexrep/internal/api"
	"github.com/wonny/indexrep/internal/api/handlers"
	"github.com/wonny/indexrep/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 복제 탐색 엔드포인트 제공
- 저장된 실행 결과 조회 (DB 설정 시)

Endpoints:
  GET  /health                  - Health check
  GET  /metrics                 - Prometheus metrics
  POST /api/replications        - 복제 탐색 실행
  GET  /api/replications/{id}   - 저장된 실행 조회

Example:
  go run ./cmd/indexrep api
  go run ./cmd/indexrep api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== indexrep API Server ===")

	// 1. Dependencies
	rt, err := newRuntime(context.Background(), runtimeOptions{metrics: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	// Override port if flag is set
	if apiPort != "" {
		rt.cfg.Port = apiPort
	}

	log := rt.log
	log.WithFields(map[string]interface{}{
		"port": rt.cfg.Port,
		"env":  rt.cfg.Env,
	}).Info("Initializing API server")

	// 2. Handler
	replicationHandler := handlers.NewReplicationHandler(rt.service, rt.sources, rt.cfg.Replication, log)

	// 3. Router
	deps := api.RouterDeps{
		Replication: replicationHandler,
		StoreReady:  rt.service.HasStore(),
		Checks:      map[string]api.HealthChecker{"redis": rt.redis},
		RateLimit:   rt.cfg.RateLimit.RequestsPerSecond,
		Burst:       rt.cfg.RateLimit.Burst,
	}
	if rt.recorder != nil {
		deps.Recorder = rt.recorder
	}
	if rt.db != nil {
		deps.Checks["database"] = rt.db
	}
	if rt.redis.Enabled() && rt.cfg.RateLimit.QuotaPerMinute > 0 {
		deps.Quota = redis.NewQuotaLimiter(rt.redis, cachePrefix, rt.cfg.RateLimit.QuotaPerMinute, time.Minute)
	}
	router := api.NewRouter(deps, log)

	// 4. Server
	server := api.New(rt.cfg, log, router)

	// 5. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	PrintSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", rt.cfg.Port))
	fmt.Fprintln(out, "\nAvailable endpoints:")
	endpoints := []string{"GET  /health", "POST /api/replications"}
	if deps.Recorder != nil {
		endpoints = append(endpoints, "GET  /metrics")
	}
	if deps.StoreReady {
		endpoints = append(endpoints, "GET  /api/replications/{id}")
	}
	PrintList(out, endpoints)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
