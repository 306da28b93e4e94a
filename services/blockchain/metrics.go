package blockchain

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusBlockchainBlocksAdded     prometheus.Counter
	prometheusBlockchainBlocksRejected  prometheus.Counter
	prometheusBlockchainAddBlock        prometheus.Histogram
	prometheusBlockchainReorgsExecuted  prometheus.Counter
	prometheusBlockchainReorgsFailed    prometheus.Counter
	prometheusBlockchainOrphanTxPool    prometheus.Gauge
	prometheusBlockchainOrphansPromoted prometheus.Counter
	prometheusBlockchainMempoolPruned   prometheus.Counter
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusBlockchainBlocksAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xai",
			Subsystem: "blockchain",
			Name:      "blocks_added",
			Help:      "Number of blocks applied to the chain",
		},
	)

	prometheusBlockchainBlocksRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xai",
			Subsystem: "blockchain",
			Name:      "blocks_rejected",
			Help:      "Number of blocks that failed to apply",
		},
	)

	prometheusBlockchainAddBlock = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "xai",
			Subsystem: "blockchain",
			Name:      "add_block_seconds",
			Help:      "Time taken to apply a block",
			Buckets:   prometheus.DefBuckets,
		},
	)

	prometheusBlockchainReorgsExecuted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xai",
			Subsystem: "blockchain",
			Name:      "reorgs_executed",
			Help:      "Number of chain reorganizations completed",
		},
	)

	prometheusBlockchainReorgsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xai",
			Subsystem: "blockchain",
			Name:      "reorgs_failed",
			Help:      "Number of chain reorganizations aborted and rolled back",
		},
	)

	prometheusBlockchainOrphanTxPool = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xai",
			Subsystem: "blockchain",
			Name:      "orphan_tx_pool",
			Help:      "Number of orphaned transactions awaiting their inputs",
		},
	)

	prometheusBlockchainOrphansPromoted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xai",
			Subsystem: "blockchain",
			Name:      "orphan_tx_promoted",
			Help:      "Number of orphaned transactions promoted into the mempool",
		},
	)

	prometheusBlockchainMempoolPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xai",
			Subsystem: "blockchain",
			Name:      "mempool_pruned",
			Help:      "Cumulative number of transactions pruned by age",
		},
	)
}
