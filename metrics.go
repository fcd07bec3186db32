package dclist

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for dclist_operations_total.
const (
	outcomeOK           = "ok"
	outcomeNoResult     = "no_result"
	outcomeClientError  = "client_error"
	outcomeUnauthorized = "unauthorized"
	outcomeCanceled     = "canceled"
	outcomeError        = "error"
)

// metrics holds the optional Prometheus collectors. A nil *metrics records
// nothing.
type metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	updates    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dclist",
			Name:      "operations_total",
			Help:      "GraphQL operations executed against dclist.net, by outcome",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dclist",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of dclist.net operations, including whole subscriptions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dclist",
			Name:      "subscription_updates_total",
			Help:      "Update payloads received on sdkUpdates subscriptions",
		}),
	}
	for _, c := range []prometheus.Collector{m.operations, m.duration, m.updates} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func outcomeOf(err error) string {
	var (
		clientErr *ClientError
		authErr   *UnauthorizedError
	)
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrNoResult):
		return outcomeNoResult
	case errors.As(err, &clientErr):
		return outcomeClientError
	case errors.As(err, &authErr):
		return outcomeUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCanceled
	default:
		return outcomeError
	}
}

func (m *metrics) observe(operation string, err error, start time.Time) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcomeOf(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *metrics) update() {
	if m == nil {
		return
	}
	m.updates.Inc()
}
