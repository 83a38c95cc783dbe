// Package metrics provides Prometheus metrics for render jobs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reelcannon"

// Render outcome labels
const (
	StatusSuccess        = "success"
	StatusConfigError    = "config_error"
	StatusProbeError     = "probe_error"
	StatusExecutionError = "execution_error"
	StatusError          = "error"
)

// Recorder owns a private registry so a one-shot CLI run can dump exactly
// its own series to a textfile.
type Recorder struct {
	registry *prometheus.Registry

	renders       *prometheus.CounterVec
	renderSeconds prometheus.Histogram
	phaseSeconds  *prometheus.HistogramVec
	filterStages  prometheus.Gauge
	encodeSpeed   prometheus.Gauge
	downloadBytes prometheus.Counter
}

// New creates a recorder with all collectors registered
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Render jobs by outcome",
		}, []string{"status"}),
		renderSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Wall time of a whole render job",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		phaseSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of each render phase",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"phase"}),
		filterStages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ffmpeg",
			Name:      "filter_stages",
			Help:      "Filter stages in the most recent graph",
		}),
		encodeSpeed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ffmpeg",
			Name:      "processing_speed",
			Help:      "Last reported FFmpeg processing speed multiplier",
		}),
		downloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes downloaded for render sources",
		}),
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRender records a finished job
func (r *Recorder) ObserveRender(status string, elapsed time.Duration) {
	r.renders.WithLabelValues(status).Inc()
	r.renderSeconds.Observe(elapsed.Seconds())
}

// ObservePhase records the wall time of one phase
func (r *Recorder) ObservePhase(phase string, elapsed time.Duration) {
	r.phaseSeconds.WithLabelValues(phase).Observe(elapsed.Seconds())
}

// SetFilterStages records the size of the built graph
func (r *Recorder) SetFilterStages(n int) {
	r.filterStages.Set(float64(n))
}

// SetEncodeSpeed records the latest speed from a progress report
func (r *Recorder) SetEncodeSpeed(speed float64) {
	r.encodeSpeed.Set(speed)
}

// AddDownloadBytes counts fetched bytes
func (r *Recorder) AddDownloadBytes(n int64) {
	if n > 0 {
		r.downloadBytes.Add(float64(n))
	}
}

// WriteTextfile writes all series in the node-exporter textfile format
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
