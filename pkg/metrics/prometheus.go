// Package metrics exports memoized call events as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/goliatone/go-memoizer/memoize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "memoizer"

// Observer counts memoized calls by outcome and records their latency.
type Observer struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ memoize.Observer = (*Observer)(nil)

// NewObserver registers the collectors on reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewObserver(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Observer{
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls_total",
				Help:      "Total number of memoized calls by outcome",
			},
			[]string{"table", "operation", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "call_duration_seconds",
				Help:      "Memoized call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"table", "operation"},
		),
	}
}

// OnMemoizedCall implements memoize.Observer.
func (o *Observer) OnMemoizedCall(_ context.Context, event memoize.Event) {
	o.calls.WithLabelValues(event.Table, event.Operation, string(event.Kind)).Inc()
	o.duration.WithLabelValues(event.Table, event.Operation).Observe(event.Duration.Seconds())
}
