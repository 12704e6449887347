// Package metrics provides Prometheus metrics collection for the
// patch bay host.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics and implements ports.Metrics.
type Collector struct {
	// Routing metrics
	SignalsRouted  *prometheus.CounterVec
	SignalsDropped *prometheus.CounterVec

	// Plugin metrics
	PluginLoads *prometheus.CounterVec

	// Host metrics
	ModulesGauge prometheus.Gauge

	// Config metrics
	ConfigReloads *prometheus.CounterVec
}

// New creates a new metrics collector with all metrics registered on
// the default registry.
func New() *Collector {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates a collector registered on a specific registerer, so
// tests can use an isolated registry.
func NewWith(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		SignalsRouted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "patchbay",
				Name:      "signals_routed_total",
				Help:      "Total number of signals forwarded to module inboxes",
			},
			[]string{"source", "kind"},
		),
		SignalsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "patchbay",
				Name:      "signals_dropped_total",
				Help:      "Total number of signals discarded before delivery",
			},
			[]string{"source", "reason"},
		),
		PluginLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "patchbay",
				Name:      "plugin_loads_total",
				Help:      "Total number of plugin load attempts by result",
			},
			[]string{"result"},
		),
		ModulesGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "patchbay",
				Name:      "modules_running",
				Help:      "Number of currently spawned module loops",
			},
		),
		ConfigReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "patchbay",
				Name:      "config_reloads_total",
				Help:      "Total number of configuration reloads by result",
			},
			[]string{"result"},
		),
	}
}

// SignalRouted counts a signal forwarded from a module outbox.
func (c *Collector) SignalRouted(sourceID, kind string) {
	c.SignalsRouted.WithLabelValues(sourceID, kind).Inc()
}

// SignalDropped counts a signal discarded before delivery.
func (c *Collector) SignalDropped(sourceID, reason string) {
	c.SignalsDropped.WithLabelValues(sourceID, reason).Inc()
}

// PluginLoad counts a plugin load attempt by result.
func (c *Collector) PluginLoad(result string) {
	c.PluginLoads.WithLabelValues(result).Inc()
}

// ModulesRunning reports the number of spawned modules.
func (c *Collector) ModulesRunning(n int) {
	c.ModulesGauge.Set(float64(n))
}

// ConfigReload counts a configuration reload by result.
func (c *Collector) ConfigReload(result string) {
	c.ConfigReloads.WithLabelValues(result).Inc()
}

// Nop is a metrics implementation that records nothing.
type Nop struct{}

func (Nop) SignalRouted(sourceID, kind string)    {}
func (Nop) SignalDropped(sourceID, reason string) {}
func (Nop) PluginLoad(result string)              {}
func (Nop) ModulesRunning(n int)                  {}
func (Nop) ConfigReload(result string)            {}
