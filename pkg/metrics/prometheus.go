package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "indexrep"

// Recorder implements replication.Recorder using Prometheus
// ⭐ SSOT: 모든 메트릭 정의는 여기서만
type Recorder struct {
	registry *prometheus.Registry

	candidates     *prometheus.CounterVec
	searches       *prometheus.CounterVec
	searchDuration prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates a recorder on its own registry (plus Go/process collectors)
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates a recorder registering on reg
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		candidates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_evaluated_total",
				Help:      "Candidate subsets fitted, by outcome",
			},
			[]string{"outcome"},
		),
		searches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Replication searches, by final status",
			},
			[]string{"status"},
		),
		searchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Wall time of a replication search",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Result cache lookups, by result (hit/miss/error)",
			},
			[]string{"result"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "status"},
		),
	}
}

// ObserveCandidate counts one fitted candidate
func (r *Recorder) ObserveCandidate(outcome string) {
	r.candidates.WithLabelValues(outcome).Inc()
}

// ObserveSearch records a finished search
func (r *Recorder) ObserveSearch(status string, duration time.Duration) {
	r.searches.WithLabelValues(status).Inc()
	r.searchDuration.Observe(duration.Seconds())
}

// ObserveCacheLookup counts a result cache lookup
func (r *Recorder) ObserveCacheLookup(result string) {
	r.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request
func (r *Recorder) ObserveHTTP(route, method, status string, duration time.Duration) {
	r.httpDuration.WithLabelValues(route, method, status).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests, extra collectors)
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
