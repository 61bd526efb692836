package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the appointment write and
// availability paths.
type SchedulingMetrics struct {
	operationsTotal  *prometheus.CounterVec
	conflictsTotal   prometheus.Counter
	slotQuerySeconds prometheus.Histogram
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opscrm",
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Appointment operations by outcome",
		}, []string{"operation", "outcome"}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opscrm",
			Subsystem: "scheduling",
			Name:      "conflicts_total",
			Help:      "Writes rejected because of an interval conflict",
		}),
		slotQuerySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "opscrm",
			Subsystem: "scheduling",
			Name:      "slot_query_seconds",
			Help:      "Latency of availability slot generation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.conflictsTotal, m.slotQuerySeconds)
	return m
}

func (m *SchedulingMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

func (m *SchedulingMetrics) ObserveSlotQuery(seconds float64) {
	if m == nil {
		return
	}
	m.slotQuerySeconds.Observe(seconds)
}
