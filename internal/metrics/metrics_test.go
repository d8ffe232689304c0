package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CommandsTotal.WithLabelValues("GET").Inc()
	m.KeysGauge.Set(3)
	m.WaitersGauge.WithLabelValues("list_pop").Set(1)
	m.ConnectionGauge.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"keyspace_commands_total",
		"keyspace_keys_gauge",
		"keyspace_blocked_waiters_gauge",
		"keyspace_connections_gauge",
	} {
		require.True(t, names[want], "missing collector %s", want)
	}
}

func TestCommandsTotalLabeledByCommand(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.CommandsTotal.WithLabelValues("SET").Inc()
	m.CommandsTotal.WithLabelValues("SET").Inc()
	m.CommandsTotal.WithLabelValues("GET").Inc()

	var metric dto.Metric
	require.NoError(t, m.CommandsTotal.WithLabelValues("SET").(prometheus.Metric).Write(&metric))
	require.Equal(t, float64(2), metric.GetCounter().GetValue())
}
