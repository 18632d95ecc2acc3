// Package metrics holds the Prometheus collectors shared by the store and the
// HTTP layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "finman"

var (
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_operations_total",
		Help:      "Store operations by operation and result.",
	}, []string{"op", "result"})

	StoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_operation_duration_seconds",
		Help:      "Store operation latency, including open and close of the database.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"op"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "code"})

	ExpenseEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expense_events_published_total",
		Help:      "Expense events handed to the broker by type and result.",
	}, []string{"type", "result"})
)

// ObserveStore records one store operation.
func ObserveStore(op string, start time.Time, err error) {
	StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	StoreOperations.WithLabelValues(op, Result(err)).Inc()
}

// Result maps err to the "result" label value used by every counter here.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
