// Package metrics holds the Prometheus collectors for the complaint engine.
package metrics

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependency labels for DependencyFailures.
const (
	DependencyLedger       = "ledger"
	DependencyNotification = "notification"
	DependencyPublish      = "publish"
)

type Metrics struct {
	ComplaintsCreated  *prometheus.CounterVec
	Transitions        *prometheus.CounterVec
	Escalations        prometheus.Counter
	SweepRuns          *prometheus.CounterVec
	SweepDuration      prometheus.Histogram
	DependencyFailures *prometheus.CounterVec
	ConflictRetries    prometheus.Counter
}

// New creates the collectors and registers them with reg. Collectors
// already registered under the same name are reused.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ComplaintsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_created_total",
			Help: "Total number of complaints created",
		}, []string{"category"}),

		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_transitions_total",
			Help: "Total number of applied status transitions",
		}, []string{"from", "to"}),

		Escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "complaints_escalations_total",
			Help: "Total number of complaints escalated by the sweep",
		}),

		SweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_escalation_sweeps_total",
			Help: "Total number of escalation sweeps",
		}, []string{"result"}),

		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "complaints_escalation_sweep_duration_seconds",
			Help:    "Duration of escalation sweeps in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),

		DependencyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_dependency_failures_total",
			Help: "Best-effort side effects that failed after commit",
		}, []string{"dependency"}),

		ConflictRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "complaints_display_id_retries_total",
			Help: "Display id collisions retried at creation",
		}),
	}

	m.ComplaintsCreated = register(reg, m.ComplaintsCreated)
	m.Transitions = register(reg, m.Transitions)
	m.Escalations = register(reg, m.Escalations)
	m.SweepRuns = register(reg, m.SweepRuns)
	m.SweepDuration = register(reg, m.SweepDuration)
	m.DependencyFailures = register(reg, m.DependencyFailures)
	m.ConflictRetries = register(reg, m.ConflictRetries)

	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		slog.Error("failed to register metric", "error", err)
	}
	return c
}

// Handler serves the collectors gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
