/*
Package observability provides Prometheus instrumentation for the engine.

Metrics attach through lifecycle hooks, so the core stays free of any
metrics dependency; the HTTP adapter serves the registry on /metrics.
*/
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aretw0/stanza/pkg/domain"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	turnsTotal        *prometheus.CounterVec
	attemptsTotal     *prometheus.CounterVec
	capabilityTotal   *prometheus.CounterVec
	capabilitySeconds *prometheus.HistogramVec
	turnSeconds       prometheus.Histogram
	signalsTotal      *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. A nil reg uses the
// default registry, which promhttp serves out of the box.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stanza",
			Name:      "turns_total",
			Help:      "Completed turns by outcome.",
		}, []string{"outcome"}),
		attemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stanza",
			Name:      "correction_attempts_total",
			Help:      "Rejected generation attempts by stage.",
		}, []string{"stage"}),
		capabilityTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stanza",
			Name:      "capability_invocations_total",
			Help:      "Capability invocations by name and status.",
		}, []string{"capability", "status"}),
		capabilitySeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stanza",
			Name:      "capability_duration_seconds",
			Help:      "Capability handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"capability"}),
		turnSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stanza",
			Name:      "turn_duration_seconds",
			Help:      "Wall-clock duration of a full turn, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		signalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stanza",
			Name:      "signals_total",
			Help:      "Control signals raised by scripts.",
		}, []string{"kind"}),
	}
}

// Hooks returns lifecycle hooks that feed the collectors. Attach them
// to both the sandbox and the loop engine.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCapabilityReturn: func(ctx context.Context, ev *domain.CapabilityEvent) {
			status := "ok"
			if ev.Err != nil {
				status = "error"
			}
			m.capabilityTotal.WithLabelValues(ev.Name, status).Inc()
			m.capabilitySeconds.WithLabelValues(ev.Name).Observe(ev.Duration.Seconds())
		},
		OnSignal: func(ctx context.Context, sig *domain.Signal) {
			m.signalsTotal.WithLabelValues(string(sig.Kind)).Inc()
		},
		OnAttemptFailed: func(ctx context.Context, ev *domain.AttemptEvent) {
			m.attemptsTotal.WithLabelValues(ev.Stage).Inc()
		},
		OnTurnEnd: func(ctx context.Context, ev *domain.TurnEvent) {
			m.turnsTotal.WithLabelValues(ev.Outcome).Inc()
			m.turnSeconds.Observe(ev.Duration.Seconds())
		},
	}
}
