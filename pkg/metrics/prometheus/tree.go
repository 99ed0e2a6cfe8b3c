package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fula-project/gateway/pkg/metrics"
)

func init() {
	metrics.RegisterTreeMetricsConstructor(newTreeMetrics)
}

type treeMetrics struct {
	flushDuration *prometheus.HistogramVec
	treeDepth     *prometheus.GaugeVec
	getDuration   *prometheus.HistogramVec
	getOutcomes   *prometheus.CounterVec
	diffDuration  *prometheus.HistogramVec
	diffEntries   *prometheus.HistogramVec
}

func newTreeMetrics() metrics.TreeMetrics {
	reg := metrics.GetRegistry()

	return &treeMetrics{
		flushDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fula_gateway_tree_flush_duration_milliseconds",
				Help:    "Duration of Prolly Tree flush operations in milliseconds",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"bucket"},
		),
		treeDepth: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fula_gateway_tree_depth",
				Help: "Root-to-leaf depth of the bucket's Prolly Tree after the last flush",
			},
			[]string{"bucket"},
		),
		getDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fula_gateway_tree_get_duration_milliseconds",
				Help:    "Duration of Prolly Tree key lookups in milliseconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"bucket", "outcome"},
		),
		getOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fula_gateway_tree_get_total",
				Help: "Total Prolly Tree key lookups by outcome",
			},
			[]string{"bucket", "outcome"},
		),
		diffDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fula_gateway_tree_diff_duration_milliseconds",
				Help:    "Duration of Prolly Tree diff/merge operations in milliseconds",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"bucket"},
		),
		diffEntries: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fula_gateway_tree_diff_changed_entries",
				Help:    "Number of changed entries found per diff/merge",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"bucket"},
		),
	}
}

func (m *treeMetrics) ObserveFlush(bucket string, duration time.Duration) {
	m.flushDuration.WithLabelValues(bucket).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *treeMetrics) RecordTreeDepth(bucket string, depth int) {
	m.treeDepth.WithLabelValues(bucket).Set(float64(depth))
}

func (m *treeMetrics) ObserveGet(bucket string, duration time.Duration, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.getDuration.WithLabelValues(bucket, outcome).Observe(float64(duration.Microseconds()) / 1000)
	m.getOutcomes.WithLabelValues(bucket, outcome).Inc()
}

func (m *treeMetrics) ObserveDiff(bucket string, duration time.Duration, changedEntries int) {
	m.diffDuration.WithLabelValues(bucket).Observe(float64(duration.Microseconds()) / 1000)
	m.diffEntries.WithLabelValues(bucket).Observe(float64(changedEntries))
}

var _ metrics.TreeMetrics = (*treeMetrics)(nil)
