// Package metrics exposes Prometheus collectors for the trash, lifecycle and
// audit subsystems. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	AuditPersisted     = "persisted"
	AuditDropped       = "dropped"
	AuditSkipped       = "skipped_anonymous"
	AuditPersistFailed = "persist_failed"
	AuditResolveFailed = "resolve_failed"
	AuditPublished     = "published"
)

type Metrics struct {
	TrashQueryDuration  *prometheus.HistogramVec
	TrashQueryFailures  *prometheus.CounterVec
	LifecycleOperations *prometheus.CounterVec
	AuditEntries        *prometheus.CounterVec
	AuditQueueDepth     prometheus.Gauge
	EventsDropped       *prometheus.CounterVec
}

// New registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TrashQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "platform_trash_query_duration_seconds",
			Help:    "Duration of per-module trash list and count queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"module", "kind"}),
		TrashQueryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "platform_trash_query_failures_total",
			Help: "Trash queries that failed and were degraded to an empty result",
		}, []string{"module"}),
		LifecycleOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "platform_lifecycle_operations_total",
			Help: "Lifecycle operations by module, operation and result",
		}, []string{"module", "operation", "result"}),
		AuditEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "platform_audit_entries_total",
			Help: "Audit entries by processing outcome",
		}, []string{"outcome"}),
		AuditQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "platform_audit_queue_depth",
			Help: "Audit entries waiting for a worker",
		}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "platform_events_dropped_total",
			Help: "Live events a slow subscriber missed",
		}, []string{"type"}),
	}
}

// ObserveTrashQuery records the duration of a trash query.
// Call with time.Now() at the start of the query.
func (m *Metrics) ObserveTrashQuery(module string, kind string, start time.Time) {
	if m == nil {
		return
	}
	m.TrashQueryDuration.WithLabelValues(module, kind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncTrashQueryFailure(module string) {
	if m == nil {
		return
	}
	m.TrashQueryFailures.WithLabelValues(module).Inc()
}

func (m *Metrics) IncLifecycle(module string, operation string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.LifecycleOperations.WithLabelValues(module, operation, result).Inc()
}

func (m *Metrics) IncAudit(outcome string) {
	if m == nil {
		return
	}
	m.AuditEntries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetAuditQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.AuditQueueDepth.Set(float64(depth))
}

func (m *Metrics) IncEventDropped(eventType string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(eventType).Inc()
}
