// Package metrics defines the gateway's observability interfaces
// (APIMetrics for pkg/api, TreeMetrics for the buckets' Prolly Trees in
// pkg/bucket, and BlockStoreMetrics for the pkg/blockstore backends) and
// the optional Prometheus registry they report into when enabled. Every
// interface is a no-op when metrics are disabled: constructors return nil
// and every consumer checks for nil before calling, so a disabled
// deployment pays nothing.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates and installs the process-wide metrics registry.
// Must be called before any of the NewXMetrics constructors in this
// package if metrics collection is desired; otherwise they all return nil.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	registry = prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the process-wide registry. Panics if InitRegistry
// was never called; callers should always guard with IsEnabled first.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		panic("metrics: GetRegistry called before InitRegistry")
	}
	return registry
}
