package components

import (
	"net/http"
	"strconv"
	"time"

	"github.com/marmos91/bootkit/pkg/configbind"
	"github.com/marmos91/bootkit/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig binds under "metrics".
type MetricsConfig struct {
	Enabled bool `config:"enabled" default:"true" description:"serve Prometheus metrics on /metrics"`
}

var metricsSchema = configbind.MustSchema[MetricsConfig]("metrics-config")

// Metrics owns the Prometheus registry exported by the HTTP component.
// A disabled Metrics still hands out collectors; they are never registered.
type Metrics struct {
	enabled  bool
	registry *prometheus.Registry

	NodeInfo        *prometheus.GaugeVec
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics component. A nil reg gets a fresh registry
// with the Go and process collectors.
func NewMetrics(cfg *MetricsConfig, reg *prometheus.Registry, node *Node) *Metrics {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	m := &Metrics{enabled: cfg.Enabled, registry: reg}

	var registerer prometheus.Registerer
	if cfg.Enabled {
		registerer = reg
	}

	m.NodeInfo = metrics.RegisterOrReuse(registerer, prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Name:      "node_info",
			Help:      "Identity of the running node; always 1",
		},
		[]string{"node_id", "environment"},
	)).(*prometheus.GaugeVec)

	m.Requests = metrics.RegisterOrReuse(registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method, route and status",
		},
		[]string{"method", "route", "status"},
	)).(*prometheus.CounterVec)

	m.RequestDuration = metrics.RegisterOrReuse(registerer, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by method and route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)).(*prometheus.HistogramVec)

	m.NodeInfo.WithLabelValues(node.ID, node.Environment).Set(1)
	return m
}

// Enabled reports whether metrics are exported.
func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

// Registry returns the registry collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry, or 404 when metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if !m.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
