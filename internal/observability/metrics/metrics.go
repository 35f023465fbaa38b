package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics exposes counters/histograms for the SMS gateway operations.
type GatewayMetrics struct {
	operationsTotal *prometheus.CounterVec
	snapshotRecords prometheus.Histogram
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smsextract",
			Subsystem: "gateway",
			Name:      "operations_total",
			Help:      "Total gateway operations by outcome",
		}, []string{"operation", "status"}),
		snapshotRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smsextract",
			Subsystem: "gateway",
			Name:      "snapshot_records",
			Help:      "Records written per snapshot",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.snapshotRecords)
	return m
}

func (m *GatewayMetrics) ObserveOperation(operation, status string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

func (m *GatewayMetrics) ObserveSnapshot(records int) {
	if m == nil {
		return
	}
	m.snapshotRecords.Observe(float64(records))
}
