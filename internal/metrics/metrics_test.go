package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRecord(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncLifecycle("polls", "restore", nil)
	m.IncLifecycle("polls", "restore", nil)
	m.IncLifecycle("polls", "restore", errors.New("boom"))
	m.IncTrashQueryFailure("quiz_questions")
	m.IncAudit(AuditPersisted)
	m.IncAudit(AuditDropped)
	m.IncAudit(AuditDropped)
	m.SetAuditQueueDepth(7)
	m.ObserveTrashQuery("events", "list", time.Now())
	m.IncEventDropped("trash.changed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LifecycleOperations.WithLabelValues("polls", "restore", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LifecycleOperations.WithLabelValues("polls", "restore", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrashQueryFailures.WithLabelValues("quiz_questions")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuditEntries.WithLabelValues(AuditDropped)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.AuditQueueDepth))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TrashQueryDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues("trash.changed")))

	count, err := testutil.GatherAndCount(reg, "platform_audit_entries_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncLifecycle("polls", "restore", nil)
		m.IncTrashQueryFailure("polls")
		m.IncAudit(AuditPublished)
		m.SetAuditQueueDepth(1)
		m.ObserveTrashQuery("polls", "count", time.Now())
		m.IncEventDropped("audit.logged")
	})
}

func TestNewPanicsOnDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
