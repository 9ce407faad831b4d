// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the bootstrap core.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the bootstrap core. An
// instance owns its registry so tests never collide on duplicate
// registration.
type Collector struct {
	registry *prometheus.Registry

	// Listener engine metrics
	ListenersActive   prometheus.Gauge
	ListenersAttached *prometheus.CounterVec
	ListenersRemoved  *prometheus.CounterVec
	HandlerErrors     *prometheus.CounterVec
	SlowHandlers      *prometheus.CounterVec

	// Lifecycle metrics
	PhaseDuration *prometheus.HistogramVec
	PhaseFailures *prometheus.CounterVec
	BootAttempts  prometheus.Counter
	BootFailures  prometheus.Counter
}

// NewCollector creates a metrics collector with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		ListenersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listeners_active",
			Help:      "Number of currently tracked event listeners",
		}),
		ListenersAttached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listeners_attached_total",
			Help:      "Total listener attachments by event type",
		}, []string{"event_type"}),
		ListenersRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listeners_removed_total",
			Help:      "Total listener removals by event type",
		}, []string{"event_type"}),
		HandlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Total contained handler execution failures by event type",
		}, []string{"event_type"}),
		SlowHandlers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_handlers_total",
			Help:      "Total handler invocations over the per-type duration threshold",
		}, []string{"event_type"}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Initialization phase duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase", "outcome"}),
		PhaseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_failures_total",
			Help:      "Total failed initialization phases",
		}, []string{"phase"}),
		BootAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boot_attempts_total",
			Help:      "Total application boot attempts",
		}),
		BootFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boot_failures_total",
			Help:      "Total application boot attempts that rolled back",
		}),
	}

	registry.MustRegister(
		c.ListenersActive,
		c.ListenersAttached,
		c.ListenersRemoved,
		c.HandlerErrors,
		c.SlowHandlers,
		c.PhaseDuration,
		c.PhaseFailures,
		c.BootAttempts,
		c.BootFailures,
	)
	return c
}

// Registry exposes the collector's registry for the diagnostics endpoint.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObservePhase records one phase outcome with its duration.
func (c *Collector) ObservePhase(phase string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		c.PhaseFailures.WithLabelValues(phase).Inc()
	}
	c.PhaseDuration.WithLabelValues(phase, outcome).Observe(duration.Seconds())
}
