package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	EventsRegistered    *prometheus.CounterVec
	GeofenceRejections  prometheus.Counter
	AuditRecords        prometheus.Counter
	IdempotencyReplays  prometheus.Counter
	OutboxPublished     prometheus.Counter
	RequestDuration     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		EventsRegistered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "geoasistencia_events_registered_total",
			Help: "Attendance events by type and outcome",
		}, []string{"tipo", "outcome"}),
		GeofenceRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "geoasistencia_geofence_rejections_total",
			Help: "Check-in attempts rejected for being outside every assigned zone",
		}),
		AuditRecords: promauto.NewCounter(prometheus.CounterOpts{
			Name: "geoasistencia_audit_records_total",
			Help: "Audit ledger records appended",
		}),
		IdempotencyReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "geoasistencia_idempotency_replays_total",
			Help: "Attendance submissions rejected as duplicates by idempotency key",
		}),
		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "geoasistencia_audit_outbox_published_total",
			Help: "Audit outbox rows published to Kafka",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geoasistencia_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// RecordEvent counts one attendance submission result.
func (m *Metrics) RecordEvent(tipo, outcome string) {
	if m == nil {
		return
	}
	m.EventsRegistered.WithLabelValues(tipo, outcome).Inc()
}

// RecordGeofenceRejection counts one outside-all-zones rejection.
func (m *Metrics) RecordGeofenceRejection() {
	if m == nil {
		return
	}
	m.GeofenceRejections.Inc()
}

// RecordAuditAppend counts one ledger append.
func (m *Metrics) RecordAuditAppend() {
	if m == nil {
		return
	}
	m.AuditRecords.Inc()
}

// RecordIdempotencyReplay counts one duplicate submission.
func (m *Metrics) RecordIdempotencyReplay() {
	if m == nil {
		return
	}
	m.IdempotencyReplays.Inc()
}

// RecordOutboxPublished counts published outbox rows.
func (m *Metrics) RecordOutboxPublished(n int) {
	if m == nil {
		return
	}
	m.OutboxPublished.Add(float64(n))
}

// ObserveRequest records one HTTP request latency sample.
func (m *Metrics) ObserveRequest(route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(seconds)
}
