package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type escrowMetrics struct {
	operations *prometheus.CounterVec
	legs       *prometheus.CounterVec
	native     *prometheus.CounterVec
}

var (
	escrowMetricsOnce sync.Once
	escrowRegistry    *escrowMetrics
)

// Escrow returns the metrics registry tracking escrow lifecycle transitions.
func Escrow() *escrowMetrics {
	escrowMetricsOnce.Do(func() {
		escrowRegistry = &escrowMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "multiswap",
				Subsystem: "escrow",
				Name:      "operations_total",
				Help:      "Escrow operations segmented by kind and outcome.",
			}, []string{"operation", "outcome"}),
			legs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "multiswap",
				Subsystem: "escrow",
				Name:      "legs_total",
				Help:      "Asset legs moved by committed escrow transitions, segmented by operation and side.",
			}, []string{"operation", "side"}),
			native: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "multiswap",
				Subsystem: "escrow",
				Name:      "native_legs_total",
				Help:      "Native-currency legs segmented by operation and direction.",
			}, []string{"operation", "direction"}),
		}
		prometheus.MustRegister(escrowRegistry.operations, escrowRegistry.legs, escrowRegistry.native)
	})
	return escrowRegistry
}

// RecordOperation counts one escrow operation attempt.
func (m *escrowMetrics) RecordOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(normalizeLabel(operation), outcome).Inc()
}

// RecordLegs adds the number of legs moved on one side of a trade.
func (m *escrowMetrics) RecordLegs(operation, side string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.legs.WithLabelValues(normalizeLabel(operation), normalizeLabel(side)).Add(float64(count))
}

// RecordNative counts a native-currency leg movement.
func (m *escrowMetrics) RecordNative(operation, direction string) {
	if m == nil {
		return
	}
	m.native.WithLabelValues(normalizeLabel(operation), normalizeLabel(direction)).Inc()
}

func normalizeLabel(v string) string {
	normalized := strings.ToLower(strings.TrimSpace(v))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
