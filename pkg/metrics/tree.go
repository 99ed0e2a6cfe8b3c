package metrics

import "time"

// TreeMetrics observes Prolly Tree operations (pkg/prolly). Implementations
// can track flush latency, node fan-out, and diff/merge cost. Pass nil to
// disable collection with zero overhead.
type TreeMetrics interface {
	// ObserveFlush records how long a tree flush took.
	ObserveFlush(bucket string, duration time.Duration)

	// RecordTreeDepth records the current root-to-leaf depth after a flush.
	RecordTreeDepth(bucket string, depth int)

	// ObserveGet records a key lookup's latency and hit/miss outcome.
	ObserveGet(bucket string, duration time.Duration, hit bool)

	// ObserveDiff records a diff/merge operation between two tree roots.
	ObserveDiff(bucket string, duration time.Duration, changedEntries int)
}

// NewTreeMetrics returns a Prometheus-backed TreeMetrics, or nil if metrics
// are not enabled.
func NewTreeMetrics() TreeMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusTreeMetrics()
}

// newPrometheusTreeMetrics is installed by pkg/metrics/prometheus's init().
var newPrometheusTreeMetrics func() TreeMetrics

// RegisterTreeMetricsConstructor registers the Prometheus TreeMetrics
// constructor. Called by pkg/metrics/prometheus during package init.
func RegisterTreeMetricsConstructor(constructor func() TreeMetrics) {
	newPrometheusTreeMetrics = constructor
}
