// Package metrics exposes prometheus instrumentation for the registration flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registrations        *prometheus.CounterVec
	NotificationFailures prometheus.Counter
	RegionLookups        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruestzeit",
			Name:      "registrations_total",
			Help:      "Persisted registrations by assigned status.",
		}, []string{"status"}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ruestzeit",
			Name:      "notification_failures_total",
			Help:      "Registration notifications that could not be delivered.",
		}),
		RegionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruestzeit",
			Name:      "region_lookups_total",
			Help:      "Postal code lookups by result (found, empty, error).",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Registrations, m.NotificationFailures, m.RegionLookups)
	return m
}

func (m *Metrics) RegistrationPersisted(status string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(status).Inc()
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationFailures.Inc()
}

func (m *Metrics) RegionLookup(result string) {
	if m == nil {
		return
	}
	m.RegionLookups.WithLabelValues(result).Inc()
}
