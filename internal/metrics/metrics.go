package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// PipelineRunsTotal counts pipeline runs by outcome ("ok" or a failure kind).
	PipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitfind",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total number of pipeline runs, labeled by outcome.",
	}, []string{"outcome"})

	StageDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fitfind",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Time spent in each pipeline stage.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60, 120},
	}, []string{"stage"})

	LLMCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitfind",
		Subsystem: "vision",
		Name:      "calls_total",
		Help:      "Total number of vision extraction calls, labeled by kind (extract, redo, cached) and result.",
	}, []string{"kind", "result"})

	LLMCostUSDTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitfind",
		Subsystem: "vision",
		Name:      "cost_usd_total",
		Help:      "Estimated cumulative vision model spend in USD.",
	})

	SearchQueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitfind",
		Subsystem: "shopping",
		Name:      "queries_total",
		Help:      "Total number of shopping search queries, labeled by result.",
	}, []string{"result"})

	ScrapedURLsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitfind",
		Subsystem: "directlinks",
		Name:      "urls_total",
		Help:      "Total number of aggregator URLs scraped, labeled by result.",
	}, []string{"result"})

	ScrapeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitfind",
		Subsystem: "directlinks",
		Name:      "requests_total",
		Help:      "Total number of aggregator page fetches including retries.",
	})

	RateLimitHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitfind",
		Subsystem: "directlinks",
		Name:      "rate_limit_hits_total",
		Help:      "Total number of aggregator URLs that hit HTTP 429 at least once.",
	})

	PrunedSessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitfind",
		Subsystem: "sweeper",
		Name:      "pruned_sessions_total",
		Help:      "Total number of expired sessions removed.",
	})
)

// Register registers all collectors with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			PipelineRunsTotal,
			StageDurationSeconds,
			LLMCallsTotal,
			LLMCostUSDTotal,
			SearchQueriesTotal,
			ScrapedURLsTotal,
			ScrapeRequestsTotal,
			RateLimitHitsTotal,
			PrunedSessionsTotal,
		)
	})
}
