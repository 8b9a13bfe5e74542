package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type runtimeMetrics struct {
	transactions *prometheus.CounterVec
	errors       *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	runtimeMetricsOnce sync.Once
	runtimeRegistry    *runtimeMetrics

	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics
)

// Runtime returns the lazily-initialised registry tracking transaction
// execution by the host runtime.
func Runtime() *runtimeMetrics {
	runtimeMetricsOnce.Do(func() {
		runtimeRegistry = &runtimeMetrics{
			transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "multiswap",
				Subsystem: "runtime",
				Name:      "transactions_total",
				Help:      "Executed transactions segmented by program and outcome.",
			}, []string{"program", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "multiswap",
				Subsystem: "runtime",
				Name:      "errors_total",
				Help:      "Aborted transactions segmented by program and error code.",
			}, []string{"program", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "multiswap",
				Subsystem: "runtime",
				Name:      "execution_duration_seconds",
				Help:      "Latency distribution for transaction execution.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"program"}),
		}
		prometheus.MustRegister(
			runtimeRegistry.transactions,
			runtimeRegistry.errors,
			runtimeRegistry.latency,
		)
	})
	return runtimeRegistry
}

// Observe records the outcome of one transaction. A zero code means success.
func (m *runtimeMetrics) Observe(program string, code uint32, failed bool, duration time.Duration) {
	if m == nil {
		return
	}
	if program == "" {
		program = "unknown"
	}
	outcome := "success"
	if failed {
		outcome = "error"
		m.errors.WithLabelValues(program, fmt.Sprintf("%d", code)).Inc()
	}
	m.transactions.WithLabelValues(program, outcome).Inc()
	m.latency.WithLabelValues(program).Observe(duration.Seconds())
}

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "multiswap",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total RPC requests segmented by route and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "multiswap",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total RPC errors segmented by route and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "multiswap",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "multiswap",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of RPC requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of an RPC request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}
