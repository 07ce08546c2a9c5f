// Package metrics holds the Prometheus collectors of the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "judge"

type Metrics struct {
	// DispatchTotal counts enqueue attempts by class, backend and outcome (ok|failed).
	DispatchTotal *prometheus.CounterVec
	// ReconcileTotal counts callbacks by outcome.
	ReconcileTotal   *prometheus.CounterVec
	HubSubscriptions prometheus.Gauge
	// HubDeliveries counts fan-out attempts by outcome (delivered|dropped).
	HubDeliveries *prometheus.CounterVec
	StalePending  prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Task hand-offs to the execution fleet.",
		}, []string{"class", "backend", "outcome"}),
		ReconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Verdict callbacks by reconciliation outcome.",
		}, []string{"outcome"}),
		HubSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_subscriptions",
			Help:      "Live (subscriber, job) pairs.",
		}),
		HubDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_deliveries_total",
			Help:      "Result events handed to live subscribers.",
		}, []string{"outcome"}),
		StalePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stale_pending_submissions",
			Help:      "Submissions still Pending past the staleness threshold.",
		}),
	}

	reg.MustRegister(m.DispatchTotal, m.ReconcileTotal, m.HubSubscriptions, m.HubDeliveries, m.StalePending)
	return m
}

// NewUnregistered returns collectors bound to a throwaway registry.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
