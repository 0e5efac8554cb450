package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// InventoryMetrics tracks stock mutations and alert transitions.
type InventoryMetrics struct {
	mutations *prometheus.CounterVec
	units     *prometheus.CounterVec
	alerts    *prometheus.CounterVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_mutations_total",
		Help:      "Stock mutation attempts by operation and outcome.",
	}, []string{"operation", "outcome"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_units_total",
		Help:      "Units moved by committed stock mutations.",
	}, []string{"operation"})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "low_stock_alert_transitions_total",
		Help:      "Low-stock alert transitions by target status.",
	}, []string{"status"})
	reg.MustRegister(mutations, units, alerts)
	return &InventoryMetrics{
		mutations: mutations,
		units:     units,
		alerts:    alerts,
	}
}

// ObserveMutation counts a stock mutation attempt. Units are only recorded on success.
func (m *InventoryMetrics) ObserveMutation(operation string, units int, err error) {
	if m == nil || m.mutations == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.mutations.WithLabelValues(normalizeLabel(operation), outcome).Inc()
	if err == nil && units > 0 {
		m.units.WithLabelValues(normalizeLabel(operation)).Add(float64(units))
	}
}

// IncAlertTransition counts an alert entering the given status.
func (m *InventoryMetrics) IncAlertTransition(status string) {
	if m == nil || m.alerts == nil {
		return
	}
	m.alerts.WithLabelValues(normalizeLabel(status)).Inc()
}
