package lifecycle

import (
	"time"

	"github.com/marmos91/bootkit/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics observes lifecycle hooks. All methods are nil-safe: calls on a nil
// *Metrics are no-ops.
type Metrics struct {
	// HookDuration observes hook run time by phase ("start", "stop") and
	// component.
	HookDuration *prometheus.HistogramVec

	// HookFailures counts failed hooks by phase and component.
	HookFailures *prometheus.CounterVec

	// State is the current lifecycle state (0 built, 1 started, 2 stopped).
	State prometheus.Gauge
}

// NewMetrics creates lifecycle metrics and registers them with reg. A nil
// reg leaves them unregistered. Collectors already present in reg are
// reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "lifecycle",
			Name:      "hook_duration_seconds",
			Help:      "Duration of lifecycle hooks",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"phase", "component"}),
		HookFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "lifecycle",
			Name:      "hook_failures_total",
			Help:      "Total number of failed lifecycle hooks",
		}, []string{"phase", "component"}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "lifecycle",
			Name:      "state",
			Help:      "Lifecycle state: 0 built, 1 started, 2 stopped",
		}),
	}

	m.HookDuration = metrics.RegisterOrReuse(reg, m.HookDuration).(*prometheus.HistogramVec)
	m.HookFailures = metrics.RegisterOrReuse(reg, m.HookFailures).(*prometheus.CounterVec)
	m.State = metrics.RegisterOrReuse(reg, m.State).(prometheus.Gauge)
	return m
}

// ObserveHook records one hook run.
func (m *Metrics) ObserveHook(phase, component string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.HookDuration.WithLabelValues(phase, component).Observe(d.Seconds())
	if err != nil {
		m.HookFailures.WithLabelValues(phase, component).Inc()
	}
}

// SetState records the current state.
func (m *Metrics) SetState(s State) {
	if m == nil {
		return
	}
	m.State.Set(float64(s))
}
