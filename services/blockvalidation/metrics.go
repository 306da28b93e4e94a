package blockvalidation

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusValidationChainSeconds  prometheus.Histogram
	prometheusValidationForksHandled  prometheus.Counter
	prometheusValidationReorgsAdopted prometheus.Counter
	prometheusValidationOrphanBlocks  prometheus.Gauge
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusValidationChainSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "xai",
			Subsystem: "blockvalidation",
			Name:      "validate_chain_seconds",
			Help:      "Time taken to validate a chain",
			Buckets:   prometheus.DefBuckets,
		},
	)

	prometheusValidationForksHandled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xai",
			Subsystem: "blockvalidation",
			Name:      "forks_handled",
			Help:      "Number of fork blocks handled",
		},
	)

	prometheusValidationReorgsAdopted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xai",
			Subsystem: "blockvalidation",
			Name:      "reorgs_adopted",
			Help:      "Number of branches adopted over the live chain",
		},
	)

	prometheusValidationOrphanBlocks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xai",
			Subsystem: "blockvalidation",
			Name:      "orphan_blocks",
			Help:      "Number of parked orphan blocks",
		},
	)
}
