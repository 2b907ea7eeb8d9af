// Package metrics exposes service telemetry in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FocuswithJustin/BibleEcho/core/cache"
	"github.com/FocuswithJustin/BibleEcho/core/resolve"
)

const namespace = "bibleecho"

// latencyBuckets covers 100µs to 2.5s.
var latencyBuckets = []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}

var _ resolve.Recorder = (*Metrics)(nil)

// Metrics holds every collector on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	resolutions    *prometheus.CounterVec
	verses         *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	storeErrors    *prometheus.CounterVec
	transcriptions *prometheus.CounterVec
	detections     prometheus.Counter
}

// New creates and registers the collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Queries resolved, by the path that produced the result.",
		}, []string{"source"}),
		verses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolved_verses_total",
			Help:      "Verses returned by resolutions.",
		}, []string{"source"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Time spent resolving one query.",
			Buckets:   latencyBuckets,
		}, []string{"source"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Verse store failures, by operation.",
		}, []string{"operation"}),
		transcriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Transcription requests, by outcome.",
		}, []string{"outcome"}),
		detections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Live verse detections published.",
		}),
	}

	m.registry.MustRegister(
		m.resolutions,
		m.verses,
		m.latency,
		m.storeErrors,
		m.transcriptions,
		m.detections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveResolution implements resolve.Recorder.
func (m *Metrics) ObserveResolution(source resolve.Source, verses int, elapsed time.Duration) {
	label := string(source)
	m.resolutions.WithLabelValues(label).Inc()
	m.verses.WithLabelValues(label).Add(float64(verses))
	m.latency.WithLabelValues(label).Observe(elapsed.Seconds())
}

// ObserveStoreError implements resolve.Recorder.
func (m *Metrics) ObserveStoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

// ObserveTranscription counts one transcription attempt. outcome is
// "ok" or "error".
func (m *Metrics) ObserveTranscription(outcome string) {
	m.transcriptions.WithLabelValues(outcome).Inc()
}

// ObserveDetection counts one published detection.
func (m *Metrics) ObserveDetection() {
	m.detections.Inc()
}

// RegisterCache exposes the lookup cache counters. stats is called on
// every scrape.
func (m *Metrics) RegisterCache(stats func() cache.Stats) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Verse lookups served from the cache.",
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Verse lookups that went to the store.",
		}, func() float64 { return float64(stats().Misses) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Cached lookup results.",
		}, func() float64 { return float64(stats().Size) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hit_ratio",
			Help:      "Share of verse lookups served from the cache.",
		}, func() float64 { return stats().HitRatio() }),
	)
}

// RegisterGauge exposes an arbitrary gauge under the service namespace.
func (m *Metrics) RegisterGauge(name, help string, value func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, value))
}

// Registry returns the dedicated registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
