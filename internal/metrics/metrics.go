// Package metrics exports theme build telemetry in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"bennypowers.dev/lesstheme/internal/theme"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "less_theme"

// Recorder implements theme.Observer on its own registry
type Recorder struct {
	registry *prometheus.Registry

	stageSeconds  *prometheus.HistogramVec
	buildSeconds  *prometheus.HistogramVec
	builds        *prometheus.CounterVec
	documentBytes prometheus.Gauge
	declarations  prometheus.Gauge
}

var _ theme.Observer = (*Recorder)(nil)

// New creates a Recorder. With runtime set, Go and process collectors are
// registered as well.
func New(runtime bool) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each theme build stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		buildSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Time spent in Generate, by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"outcome"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Generate calls, by outcome.",
		}, []string{"outcome"}),
		documentBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_bytes",
			Help:      "Size of the last theme document.",
		}),
		declarations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_declarations",
			Help:      "Variable declarations in the last theme document.",
		}),
	}
	r.registry.MustRegister(r.stageSeconds, r.buildSeconds, r.builds, r.documentBytes, r.declarations)
	if runtime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Registry returns the registry the metrics live on
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveStage records how long one build stage took
func (r *Recorder) ObserveStage(stage theme.Stage, elapsed time.Duration) {
	r.stageSeconds.WithLabelValues(stage.String()).Observe(elapsed.Seconds())
}

// ObserveBuild records the outcome of a Generate call
func (r *Recorder) ObserveBuild(outcome theme.Outcome, doc *theme.Document, elapsed time.Duration) {
	r.builds.WithLabelValues(string(outcome)).Inc()
	r.buildSeconds.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
	if doc != nil {
		r.documentBytes.Set(float64(doc.Len()))
		r.declarations.Set(float64(len(doc.Declarations())))
	}
}
