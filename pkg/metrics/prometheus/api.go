package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fula-project/gateway/pkg/metrics"
)

func init() {
	metrics.RegisterAPIMetricsConstructor(newAPIMetrics)
}

type apiMetrics struct {
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	inFlight           *prometheus.GaugeVec
	bytesTransferred   *prometheus.CounterVec
	activeConnections  prometheus.Gauge
	authFailuresByType *prometheus.CounterVec
}

func newAPIMetrics() metrics.APIMetrics {
	reg := metrics.GetRegistry()

	return &apiMetrics{
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fula_gateway_api_request_duration_milliseconds",
				Help:    "Duration of S3 API requests in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14),
			},
			[]string{"verb", "bucket"},
		),
		requestTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fula_gateway_api_requests_total",
				Help: "Total S3 API requests by verb, bucket, and error code (empty on success)",
			},
			[]string{"verb", "bucket", "error_code"},
		),
		inFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fula_gateway_api_requests_in_flight",
				Help: "Current in-flight S3 API requests by verb",
			},
			[]string{"verb", "bucket"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fula_gateway_api_bytes_total",
				Help: "Total bytes transferred by verb, bucket, and direction",
			},
			[]string{"verb", "bucket", "direction"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "fula_gateway_api_active_connections",
				Help: "Current number of active client connections",
			},
		),
		authFailuresByType: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fula_gateway_api_auth_failures_total",
				Help: "Total rejected requests by auth failure reason",
			},
			[]string{"reason"},
		),
	}
}

func (m *apiMetrics) RecordRequest(verb, bucket string, duration time.Duration, errorCode string) {
	m.requestDuration.WithLabelValues(verb, bucket).Observe(float64(duration.Microseconds()) / 1000)
	m.requestTotal.WithLabelValues(verb, bucket, errorCode).Inc()
}

func (m *apiMetrics) RecordRequestStart(verb, bucket string) {
	m.inFlight.WithLabelValues(verb, bucket).Inc()
}

func (m *apiMetrics) RecordRequestEnd(verb, bucket string) {
	m.inFlight.WithLabelValues(verb, bucket).Dec()
}

func (m *apiMetrics) RecordBytesTransferred(verb, bucket, direction string, bytes uint64) {
	m.bytesTransferred.WithLabelValues(verb, bucket, direction).Add(float64(bytes))
}

func (m *apiMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *apiMetrics) RecordAuthFailure(reason string) {
	m.authFailuresByType.WithLabelValues(reason).Inc()
}

var _ metrics.APIMetrics = (*apiMetrics)(nil)
