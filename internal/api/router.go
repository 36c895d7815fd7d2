package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/indexrep/internal/api/handlers"
	"github.com/wonny/indexrep/pkg/logger"
)

// HealthChecker is pinged by /health; nil entries are skipped
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HTTPRecorder receives per-request telemetry
type HTTPRecorder interface {
	ObserveHTTP(route, method, status string, duration time.Duration)
	Handler() http.Handler
}

// QuotaLimiter enforces a per-client quota shared across instances
type QuotaLimiter interface {
	Allow(ctx context.Context, subject string) (bool, int, error)
}

// RouterDeps collects everything the router wires together
type RouterDeps struct {
	Replication *handlers.ReplicationHandler
	StoreReady  bool // GET /api/replications/{id} needs a run store
	Recorder    HTTPRecorder
	Quota       QuotaLimiter
	Checks      map[string]HealthChecker
	RateLimit   float64 // requests per second on /api, 0 = unlimited
	Burst       int
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps RouterDeps, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(deps.Checks)).Methods("GET")

	// Metrics
	if deps.Recorder != nil {
		r.Handle("/metrics", deps.Recorder.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	if deps.RateLimit > 0 {
		api.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(deps.RateLimit), max(deps.Burst, 1))))
	}
	if deps.Quota != nil {
		api.Use(quotaMiddleware(deps.Quota, log))
	}

	// Replication endpoints
	api.HandleFunc("/replications", deps.Replication.Replicate).Methods("POST")
	if deps.StoreReady {
		api.HandleFunc("/replications/{id}", deps.Replication.GetRun).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log, deps.Recorder))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				components[name] = err.Error()
				status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     status,
			"service":    "indexrep-api",
			"components": components,
		})
	}
}

// statusWriter remembers the response code for logging and metrics
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger, recorder HTTPRecorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(sw, r)

			duration := time.Since(start)
			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			if recorder != nil {
				recorder.ObserveHTTP(route, r.Method, strconv.Itoa(sw.status), duration)
			}

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": duration,
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware applies one token bucket to the whole API
func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// quotaMiddleware applies the shared per-client quota; a store failure lets the request through
func quotaMiddleware(quota QuotaLimiter, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, err := quota.Allow(r.Context(), clientIP(r))
			if err != nil {
				log.WithError(err).Warn("Quota check failed")
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				writeError(w, http.StatusTooManyRequests, "Quota exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
