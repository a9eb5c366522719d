// Package metrics exports collection measurements as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Namespace prefixes every metric name.
const Namespace = "larder"

// Observer implements types.Observer on top of a Prometheus registry.
type Observer struct {
	operations *prometheus.CounterVec
	lockWait   *prometheus.HistogramVec
	documents  *prometheus.GaugeVec
}

var _ types.Observer = (*Observer)(nil)

// New registers the collection metrics with reg. A nil reg uses
// prometheus.DefaultRegisterer. Registering twice with the same registry
// panics, as with promauto.
func New(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Observer{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Collection operations by collection, operation and outcome",
		}, []string{"collection", "op", "result"}),
		lockWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "lock_wait_seconds",
			Help:      "Time spent acquiring the cross-process lock file",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 5, 10},
		}, []string{"collection"}),
		documents: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "documents",
			Help:      "Documents in the collection after the last committed mutation",
		}, []string{"collection"}),
	}
}

// ObserveOperation counts one operation.
func (o *Observer) ObserveOperation(collection, op string, err error) {
	o.operations.WithLabelValues(collection, op, Result(err)).Inc()
}

// ObserveLockWait records time spent waiting for the lock file.
func (o *Observer) ObserveLockWait(collection string, d time.Duration) {
	o.lockWait.WithLabelValues(collection).Observe(d.Seconds())
}

// ObserveDocuments records the collection size.
func (o *Observer) ObserveDocuments(collection string, n int) {
	o.documents.WithLabelValues(collection).Set(float64(n))
}

// Result classifies an operation error into a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, types.ErrParse):
		return "parse_error"
	case errors.Is(err, types.ErrIO):
		return "io_error"
	case errors.Is(err, types.ErrClosed):
		return "closed"
	default:
		return "invalid"
	}
}
