package metrics

import "time"

// BlockStoreMetrics observes pkg/blockstore backend operations (memory,
// badger, s3, ipfshttp). All backends report through one interface,
// tagged by backend name. Pass nil to disable collection with zero
// overhead.
type BlockStoreMetrics interface {
	// ObserveOperation records a completed backend operation (e.g.
	// "PutBlock", "GetBlock", "Pin") with its duration and outcome.
	ObserveOperation(backend, operation string, duration time.Duration, err error)

	// RecordBytes records bytes transferred for a read/write operation.
	RecordBytes(backend, direction string, bytes int64)

	// RecordBlockCount updates the current number of distinct blocks
	// held by a backend, where the backend can report it cheaply.
	RecordBlockCount(backend string, count int64)
}

// NewBlockStoreMetrics returns a Prometheus-backed BlockStoreMetrics, or
// nil if metrics are not enabled.
func NewBlockStoreMetrics() BlockStoreMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusBlockStoreMetrics()
}

var newPrometheusBlockStoreMetrics func() BlockStoreMetrics

// RegisterBlockStoreMetricsConstructor registers the Prometheus
// BlockStoreMetrics constructor. Called by pkg/metrics/prometheus during
// package init.
func RegisterBlockStoreMetricsConstructor(constructor func() BlockStoreMetrics) {
	newPrometheusBlockStoreMetrics = constructor
}
