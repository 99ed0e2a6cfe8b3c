package metrics

import "time"

// APIMetrics observes the S3 wire surface (pkg/api): per-verb
// request/connection/throughput counters labeled by bucket.
// Pass nil to disable collection with zero overhead.
type APIMetrics interface {
	// RecordRequest records a completed request: verb ("GetObject",
	// "PutObject", "ListObjectsV2", ...), bucket, duration, and the S3
	// error code if it failed (empty string on success).
	RecordRequest(verb, bucket string, duration time.Duration, errorCode string)

	// RecordRequestStart increments the in-flight request gauge for verb.
	RecordRequestStart(verb, bucket string)

	// RecordRequestEnd decrements the in-flight request gauge for verb.
	RecordRequestEnd(verb, bucket string)

	// RecordBytesTransferred records bytes read or written for a verb,
	// by direction ("read" or "write").
	RecordBytesTransferred(verb, bucket, direction string, bytes uint64)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordAuthFailure records a rejected request, by reason
	// ("missing_signature", "expired_token", "signature_mismatch", ...).
	RecordAuthFailure(reason string)
}

// NewAPIMetrics returns a Prometheus-backed APIMetrics, or nil if metrics
// are not enabled.
func NewAPIMetrics() APIMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusAPIMetrics()
}

var newPrometheusAPIMetrics func() APIMetrics

// RegisterAPIMetricsConstructor registers the Prometheus APIMetrics
// constructor. Called by pkg/metrics/prometheus during package init.
func RegisterAPIMetricsConstructor(constructor func() APIMetrics) {
	newPrometheusAPIMetrics = constructor
}
