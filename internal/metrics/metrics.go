// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the server updates.
type Metrics struct {
	CommandsTotal   *prometheus.CounterVec
	KeysGauge       prometheus.Gauge
	WaitersGauge    *prometheus.GaugeVec
	ConnectionGauge prometheus.Gauge
}

// New registers and returns the server's collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the global
// registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keyspace_commands_total",
			Help: "Commands processed by the executor, by command name.",
		}, []string{"command"}),
		KeysGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "keyspace_keys_gauge",
			Help: "Approximate number of live keys in the keyspace.",
		}),
		WaitersGauge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "keyspace_blocked_waiters_gauge",
			Help: "Clients currently parked awaiting new data, by waiter kind.",
		}, []string{"kind"}),
		ConnectionGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "keyspace_connections_gauge",
			Help: "Currently open client connections.",
		}),
	}
}
