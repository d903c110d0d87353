// Package telemetry exposes Prometheus metrics and configures
// OpenTelemetry tracing for translation runs.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/codeshift/internal/translate"
)

const namespace = "codeshift"

// Metrics records translation activity. It implements translate.Observer.
type Metrics struct {
	registry *prometheus.Registry

	windows    *prometheus.CounterVec
	files      *prometheus.CounterVec
	lines      prometheus.Counter
	latency    prometheus.Histogram
	retries    prometheus.Counter
	unbalanced prometheus.Counter
	inflight   prometheus.Gauge
}

// NewMetrics registers the codeshift collectors, plus the Go runtime and
// process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		windows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_total",
			Help:      "Windows processed, by outcome.",
		}, []string{"outcome"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Files processed, by status.",
		}, []string{"status"}),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_written_total",
			Help:      "Translated lines committed to destinations.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "window_duration_seconds",
			Help:      "Time spent on one window, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Collaborator calls beyond the first for a window.",
		}),
		unbalanced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unbalanced_files_total",
			Help:      "Translated files whose brackets do not balance.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files_in_progress",
			Help:      "Files currently being translated.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.windows, m.files, m.lines, m.latency, m.retries, m.unbalanced, m.inflight,
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// FileStarted implements translate.Observer.
func (m *Metrics) FileStarted(translate.FileEvent) { m.inflight.Inc() }

// FileDone implements translate.Observer.
func (m *Metrics) FileDone(translate.FileEvent) { m.inflight.Dec() }

// WindowDone implements translate.Observer.
func (m *Metrics) WindowDone(e translate.WindowEvent) {
	outcome := e.State.String()
	if e.Skipped {
		outcome = "skipped"
	}
	m.windows.WithLabelValues(outcome).Inc()
	m.lines.Add(float64(e.Lines))
	m.latency.Observe(e.Duration.Seconds())
	if e.Attempts > 1 {
		m.retries.Add(float64(e.Attempts - 1))
	}
}

// RecordFile counts a finished file by status and flags an unbalanced
// output.
func (m *Metrics) RecordFile(status string, unbalanced bool) {
	m.files.WithLabelValues(status).Inc()
	if unbalanced {
		m.unbalanced.Inc()
	}
}

var _ translate.Observer = (*Metrics)(nil)
