package query

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "querylite",
			Subsystem: "query",
			Name:      "fetches_total",
			Help:      "Completed loader invocations by outcome",
		},
		[]string{"scope", "outcome"},
	)

	fetchDedupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "querylite",
			Subsystem: "query",
			Name:      "fetch_dedup_total",
			Help:      "Fetch calls that joined an in-flight loader invocation",
		},
		[]string{"scope"},
	)

	loaderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "querylite",
			Subsystem: "query",
			Name:      "loader_duration_seconds",
			Help:      "Duration of loader invocations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"scope"},
	)

	registrySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "querylite",
			Subsystem: "query",
			Name:      "registry_size",
			Help:      "Queries currently held by query clients",
		},
	)

	gcRemovedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "querylite",
			Subsystem: "query",
			Name:      "gc_removed_total",
			Help:      "Queries removed after their cache time elapsed unobserved",
		},
		[]string{"scope"},
	)
)

func init() {
	prometheus.MustRegister(fetchesTotal, fetchDedupTotal, loaderDuration, registrySize, gcRemovedTotal)
}

// scopeLabel maps keys without a string scope onto a fixed label value.
func scopeLabel(scope string) string {
	if scope == "" {
		return "unscoped"
	}
	return scope
}
