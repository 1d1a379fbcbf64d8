package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "atticus",
			Name:      "search_request_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"}, // "funnel" / "fallback"
	)

	SearchFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "atticus",
			Name:      "search_fallbacks_total",
			Help:      "Searches degraded to the single-stage fallback",
		},
	)

	SearchResultsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "atticus",
			Name:      "search_results_returned",
			Help:      "Number of hits returned per search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	SearchStagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atticus",
			Name:      "search_stages_total",
			Help:      "Staged searches by number of funnel stages run",
		},
		[]string{"stages"},
	)

	SearchEmptyTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "atticus",
			Name:      "search_empty_total",
			Help:      "Searches that returned no results",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(SearchFallbacksTotal)
	prometheus.MustRegister(SearchResultsReturned)
	prometheus.MustRegister(SearchStagesTotal)
	prometheus.MustRegister(SearchEmptyTotal)
	searchMetricsRegistered = true
}
