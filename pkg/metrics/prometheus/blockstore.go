package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fula-project/gateway/pkg/metrics"
)

func init() {
	metrics.RegisterBlockStoreMetricsConstructor(newBlockStoreMetrics)
}

type blockStoreMetrics struct {
	opDuration *prometheus.HistogramVec
	opTotal    *prometheus.CounterVec
	bytesTotal *prometheus.CounterVec
	blockCount *prometheus.GaugeVec
}

func newBlockStoreMetrics() metrics.BlockStoreMetrics {
	reg := metrics.GetRegistry()

	return &blockStoreMetrics{
		opDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fula_gateway_blockstore_operation_duration_milliseconds",
				Help:    "Duration of block store backend operations in milliseconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
			},
			[]string{"backend", "operation"},
		),
		opTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fula_gateway_blockstore_operations_total",
				Help: "Total block store backend operations by outcome",
			},
			[]string{"backend", "operation", "outcome"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fula_gateway_blockstore_bytes_total",
				Help: "Total bytes transferred to/from a block store backend",
			},
			[]string{"backend", "direction"},
		),
		blockCount: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fula_gateway_blockstore_block_count",
				Help: "Current number of distinct blocks held by a backend",
			},
			[]string{"backend"},
		),
	}
}

func (m *blockStoreMetrics) ObserveOperation(backend, operation string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.opDuration.WithLabelValues(backend, operation).Observe(float64(duration.Microseconds()) / 1000)
	m.opTotal.WithLabelValues(backend, operation, outcome).Inc()
}

func (m *blockStoreMetrics) RecordBytes(backend, direction string, bytes int64) {
	m.bytesTotal.WithLabelValues(backend, direction).Add(float64(bytes))
}

func (m *blockStoreMetrics) RecordBlockCount(backend string, count int64) {
	m.blockCount.WithLabelValues(backend).Set(float64(count))
}

var _ metrics.BlockStoreMetrics = (*blockStoreMetrics)(nil)
