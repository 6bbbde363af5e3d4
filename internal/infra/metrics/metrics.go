// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		ordersTotal,
		checkoutDuration,
	)
}

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Order lifecycle transitions by resulting status.",
		},
		[]string{"status", "reason"}, // reason is empty unless status is 'canceled'
	)

	checkoutDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_duration_seconds",
			Help:    "End-to-end checkout latency grouped by outcome.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"outcome"},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncOrder(status, reason string) {
	ordersTotal.WithLabelValues(norm(status), norm(reason)).Inc()
}

func ObserveCheckout(outcome string, seconds float64) {
	checkoutDuration.WithLabelValues(norm(outcome)).Observe(seconds)
}
