// Package metrics holds the prometheus collectors of the engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "twk"

// Metrics is safe to use as a nil pointer; every recorder is a no-op then.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	JobsTotal       *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec
	JobsActive      prometheus.Gauge
	UnitsProcessed  *prometheus.CounterVec
	FormulaFailures prometheus.Counter
	DataGaps        prometheus.Counter

	PaymentsTotal      *prometheus.CounterVec
	CollaboratorErrors *prometheus.CounterVec

	registry *prometheus.Registry
}

func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "finished_total",
			Help:      "Background jobs by kind and final status",
		}, []string{"kind", "status"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "duration_seconds",
			Help:      "Background job wall time in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 900},
		}, []string{"kind"}),
		JobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "active",
			Help:      "Jobs currently running in this process",
		}),
		UnitsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "units_total",
			Help:      "Work units processed by outcome",
		}, []string{"outcome"}),
		FormulaFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "formula",
			Name:      "evaluation_failures_total",
			Help:      "Formula evaluations that failed during a simulation",
		}),
		DataGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "data_gaps_total",
			Help:      "Employee periods without paid payroll history",
		}),

		PaymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "payments_total",
			Help:      "Employee payment lines by outcome",
		}, []string{"outcome"}),
		CollaboratorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "integration",
			Name:      "errors_total",
			Help:      "Failed calls to external collaborators",
		}, []string{"collaborator"}),
	}
}

// Register adds every collector to a fresh registry served by Handler.
func (m *Metrics) Register() error {
	reg := prometheus.NewRegistry()
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.JobsTotal,
		m.JobDuration,
		m.JobsActive,
		m.UnitsProcessed,
		m.FormulaFailures,
		m.DataGaps,
		m.PaymentsTotal,
		m.CollaboratorErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	m.registry = reg
	return nil
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	var h http.Handler = promhttp.Handler()
	if m != nil && m.registry != nil {
		h = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	}
	return gin.WrapH(h)
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.JobsActive.Inc()
}

func (m *Metrics) JobFinished(kind, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.JobsActive.Dec()
	m.JobsTotal.WithLabelValues(kind, status).Inc()
	m.JobDuration.WithLabelValues(kind).Observe(took.Seconds())
}

func (m *Metrics) Unit(outcome string) {
	if m == nil {
		return
	}
	m.UnitsProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FormulaFailed() {
	if m == nil {
		return
	}
	m.FormulaFailures.Inc()
}

func (m *Metrics) DataGap() {
	if m == nil {
		return
	}
	m.DataGaps.Inc()
}

func (m *Metrics) Payment(outcome string) {
	if m == nil {
		return
	}
	m.PaymentsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CollaboratorFailed(name string) {
	if m == nil {
		return
	}
	m.CollaboratorErrors.WithLabelValues(name).Inc()
}
