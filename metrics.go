package fleettracker

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/theoremus-urban-solutions/fleet-tracker/fleet"
)

// PromMetrics implements fleet.Metrics on Prometheus collectors. Construct it
// once; the collectors register against the default registry.
type PromMetrics struct {
	mutations *prometheus.CounterVec
	events    *prometheus.CounterVec
	dropped   prometheus.Counter
	sessions  prometheus.Gauge
}

func NewPromMetrics() *PromMetrics {
	m := &PromMetrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_mutations_total",
			Help: "Mutations applied through the tracker, by operation.",
		}, []string{"op"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_events_delivered_total",
			Help: "Push events delivered to live sessions, by event type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_deliveries_dropped_total",
			Help: "Sessions dropped because their send buffer backed up.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_live_sessions",
			Help: "Currently connected observer sessions.",
		}),
	}
	prometheus.MustRegister(m.mutations, m.events, m.dropped, m.sessions)
	return m
}

func (m *PromMetrics) MutationApplied(op string) {
	m.mutations.WithLabelValues(op).Inc()
}

func (m *PromMetrics) EventPublished(eventType string, delivered int) {
	m.events.WithLabelValues(eventType).Add(float64(delivered))
}

func (m *PromMetrics) DeliveryDropped(n int) {
	m.dropped.Add(float64(n))
}

func (m *PromMetrics) SessionsChanged(live int) {
	m.sessions.Set(float64(live))
}

var _ fleet.Metrics = (*PromMetrics)(nil)
