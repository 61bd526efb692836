package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperationCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)

	m.ObserveOperation("create", "created")
	m.ObserveOperation("create", "created")
	m.ObserveOperation("create", "conflict")
	m.ObserveConflict()

	if got := testutil.ToFloat64(m.operationsTotal.WithLabelValues("create", "created")); got != 2 {
		t.Fatalf("created count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.operationsTotal.WithLabelValues("create", "conflict")); got != 1 {
		t.Fatalf("conflict count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.conflictsTotal); got != 1 {
		t.Fatalf("conflicts total = %v, want 1", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *SchedulingMetrics
	m.ObserveOperation("update", "updated")
	m.ObserveConflict()
	m.ObserveSlotQuery(0.1)
}
