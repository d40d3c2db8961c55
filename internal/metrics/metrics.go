// Package metrics exports service telemetry to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for mood operations.
type Observer interface {
	RecordOperation(op string, duration time.Duration, err error)
	RecordCycleApplied(days int)
	RecordCacheLookup(hit bool)
}

// PrometheusObserver exports operation metrics to Prometheus.
type PrometheusObserver struct {
	opDuration  *prometheus.HistogramVec
	opErrors    *prometheus.CounterVec
	cycleDays   prometheus.Counter
	cacheLookup *prometheus.CounterVec
}

// NewPrometheusObserver registers duration, error, cycle and cache metrics.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "moodcal"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of mood tracker operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Count of failed mood tracker operations.",
		}, []string{"operation"}),
		cycleDays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_days_applied_total",
			Help:      "Days written by cycle applications.",
		}),
		cacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_cache_lookups_total",
			Help:      "Projection cache lookups by result.",
		}, []string{"result"}),
	}

	if err := register(reg, &o.opDuration); err != nil {
		return nil, err
	}
	if err := register(reg, &o.opErrors); err != nil {
		return nil, err
	}
	if err := register(reg, &o.cycleDays); err != nil {
		return nil, err
	}
	if err := register(reg, &o.cacheLookup); err != nil {
		return nil, err
	}
	return o, nil
}

// register reuses an already registered collector of the same shape so
// several observers can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				*c = existing
				return nil
			}
		}
		return fmt.Errorf("register metric: %w", err)
	}
	return nil
}

func (o *PrometheusObserver) RecordOperation(op string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.opDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		o.opErrors.WithLabelValues(op).Inc()
	}
}

func (o *PrometheusObserver) RecordCycleApplied(days int) {
	if o == nil {
		return
	}
	o.cycleDays.Add(float64(days))
}

func (o *PrometheusObserver) RecordCacheLookup(hit bool) {
	if o == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	o.cacheLookup.WithLabelValues(result).Inc()
}

// Nop discards all telemetry.
type Nop struct{}

func (Nop) RecordOperation(string, time.Duration, error) {}

func (Nop) RecordCycleApplied(int) {}

func (Nop) RecordCacheLookup(bool) {}
