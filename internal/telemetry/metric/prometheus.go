// Package metric provides Prometheus metrics for respkv.
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "respkv"

// Registry holds all application metrics.
//
// All recording methods are safe to call on a nil *Registry, which records
// nothing.
type Registry struct {
	registry *prometheus.Registry

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec

	// Connection metrics
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
}

// NewRegistry creates a registry with the application metrics plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands processed, by command and result kind.",
		}, []string{"command", "result"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution latency.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"command"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Error replies sent, by error category.",
		}, []string{"category"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Currently open client connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Client connections accepted.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.CommandsTotal,
		r.CommandDuration,
		r.ErrorsTotal,
		r.ConnectionsActive,
		r.ConnectionsTotal,
	)

	return r
}

// Register adds a custom collector to the registry.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry: r.registry,
	})
}

// ObserveCommand records one executed command.
func (r *Registry) ObserveCommand(command, result string, d time.Duration) {
	if r == nil {
		return
	}
	r.CommandsTotal.WithLabelValues(command, result).Inc()
	r.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// IncError counts one error reply. An empty category is counted as "other".
func (r *Registry) IncError(category string) {
	if r == nil {
		return
	}
	if category == "" {
		category = "other"
	}
	r.ErrorsTotal.WithLabelValues(category).Inc()
}

// ConnOpened records an accepted connection.
func (r *Registry) ConnOpened() {
	if r == nil {
		return
	}
	r.ConnectionsTotal.Inc()
	r.ConnectionsActive.Inc()
}

// ConnClosed records a closed connection.
func (r *Registry) ConnClosed() {
	if r == nil {
		return
	}
	r.ConnectionsActive.Dec()
}
