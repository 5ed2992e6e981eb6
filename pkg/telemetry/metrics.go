package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openfroyo/vtree/pkg/vtree"
)

// Metrics provides Prometheus metrics for session cycles. It implements
// vtree.Observer.
type Metrics struct {
	config MetricsConfig

	// Cycle metrics
	cycles        *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	diffEvents    *prometheus.CounterVec
	treeNodes     *prometheus.GaugeVec

	// Registry metrics
	registryEntries *prometheus.GaugeVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// Source metrics
	sourceReloads *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Total number of session cycles",
			},
			[]string{"session", "kind", "status"},
		),
		cycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of a normalize and diff cycle in seconds",
				Buckets:   buckets,
			},
			[]string{"session", "kind"},
		),
		diffEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diff_events_total",
				Help:      "Total number of differ events delivered",
			},
			[]string{"session", "op"},
		),
		treeNodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tree_nodes",
				Help:      "Number of nodes in the last applied snapshot",
			},
			[]string{"session"},
		),

		registryEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_entries",
				Help:      "Current number of live resources in the registry",
			},
			[]string{"session"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),

		sourceReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_reloads_total",
				Help:      "Total number of snapshot source reloads",
			},
			[]string{"source", "status"},
		),
	}

	registry.MustRegister(
		m.cycles,
		m.cycleDuration,
		m.diffEvents,
		m.treeNodes,
		m.registryEntries,
		m.errorsByClass,
		m.errorsByCode,
		m.sourceReloads,
	)

	return m, nil
}

// ObserveCycle records a finished cycle.
func (m *Metrics) ObserveCycle(r *vtree.Report, err error) {
	if m.cycles == nil {
		return
	}
	status := "succeeded"
	if err != nil {
		status = "failed"
		m.RecordError(err)
	}
	kind := string(r.Kind)
	m.cycles.WithLabelValues(r.Session, kind, status).Inc()
	m.cycleDuration.WithLabelValues(r.Session, kind).Observe(r.Duration.Seconds())

	s := r.Summary
	for op, n := range map[string]int{
		string(vtree.OpAdded):         s.Added,
		string(vtree.OpRemoved):       s.Removed + s.Cascaded,
		string(vtree.OpParamsChanged): s.ParamsChanged,
		string(vtree.OpReordered):     s.Reordered,
	} {
		if n > 0 {
			m.diffEvents.WithLabelValues(r.Session, op).Add(float64(n))
		}
	}
	if err == nil {
		m.treeNodes.WithLabelValues(r.Session).Set(float64(r.Nodes))
	}
}

// SetRegistryEntries sets the live resource count of a session.
func (m *Metrics) SetRegistryEntries(session string, count int) {
	if m.registryEntries == nil {
		return
	}
	m.registryEntries.WithLabelValues(session).Set(float64(count))
}

// RecordError records an error by class and, when classified, by code.
func (m *Metrics) RecordError(err error) {
	if m.errorsByClass == nil || err == nil {
		return
	}
	class := string(vtree.ClassOf(err))
	if class == "" {
		class = "unclassified"
	}
	m.errorsByClass.WithLabelValues(class).Inc()
	if code := vtree.CodeOf(err); code != "" {
		m.errorsByCode.WithLabelValues(code).Inc()
	}
}

// RecordSourceReload records a snapshot reload from a file or script.
func (m *Metrics) RecordSourceReload(source string, err error) {
	if m.sourceReloads == nil {
		return
	}
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	m.sourceReloads.WithLabelValues(source, status).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
