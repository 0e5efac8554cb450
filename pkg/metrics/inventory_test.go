package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryMetricsCountsMutations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewInventoryMetrics(reg)

	m.ObserveMutation("deduct", 4, nil)
	m.ObserveMutation("deduct", 3, errors.New("insufficient"))
	m.IncAlertTransition("OPEN")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 1.0, counterWithLabels(t, mfs, "motorshop_stock_mutations_total", map[string]string{"operation": "deduct", "outcome": OutcomeSuccess}))
	assert.Equal(t, 1.0, counterWithLabels(t, mfs, "motorshop_stock_mutations_total", map[string]string{"operation": "deduct", "outcome": OutcomeFailure}))
	assert.Equal(t, 4.0, counterWithLabels(t, mfs, "motorshop_stock_units_total", map[string]string{"operation": "deduct"}))
	assert.Equal(t, 1.0, counterWithLabels(t, mfs, "motorshop_low_stock_alert_transitions_total", map[string]string{"status": "OPEN"}))
}

func TestNilInventoryMetricsIsSafe(t *testing.T) {
	var m *InventoryMetrics
	m.ObserveMutation("receive", 1, nil)
	m.IncAlertTransition("RESOLVED")
	NewInventoryMetrics(nil).ObserveMutation("receive", 1, nil)
}

func counterWithLabels(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	require.NotNil(t, mf, "metric %s not found", name)
	for _, metric := range mf.GetMetric() {
		matched := true
		for k, v := range labels {
			if !matchesLabel(metric.GetLabel(), k, v) {
				matched = false
				break
			}
		}
		if matched {
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s missing labels %v", name, labels)
	return 0
}
