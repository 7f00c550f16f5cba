// Package metrics exposes Prometheus instrumentation for the monitoring pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "piiwatch"

// Classification results
const (
	ResultPositive = "positive"
	ResultNegative = "negative"
	ResultError    = "error"
)

// Metrics holds all pipeline Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ItemsScanned       *prometheus.CounterVec
	ClassifierCalls    *prometheus.CounterVec
	ClassifierDuration *prometheus.HistogramVec
	Remediations       *prometheus.CounterVec
	PollErrors         *prometheus.CounterVec
	UnresolvedChannels prometheus.Counter
	TickDuration       prometheus.Histogram
	LastTickTimestamp  prometheus.Gauge
	AttachmentCleanups *prometheus.CounterVec
}

// New registers all metrics on a dedicated registry, alongside Go runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ItemsScanned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_scanned_total",
			Help:      "Content items fetched from monitored sources",
		}, []string{"source_kind"}),
		ClassifierCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_calls_total",
			Help:      "Classification requests by content shape and result",
		}, []string{"shape", "result"}),
		ClassifierDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_call_duration_seconds",
			Help:      "Latency of classification requests",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"shape"}),
		Remediations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remediations_total",
			Help:      "Remediation results by outcome and terminal state",
		}, []string{"source_kind", "outcome", "state"}),
		PollErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Adapter failures while listing new items",
		}, []string{"source_kind"}),
		UnresolvedChannels: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_channels_total",
			Help:      "Configured channel names that could not be resolved to an id",
		}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one scheduler tick across all sources",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		LastTickTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_tick_timestamp_seconds",
			Help:      "Unix time the last scheduler tick finished",
		}),
		AttachmentCleanups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachment_cleanups_total",
			Help:      "Temporary attachment file removals by result",
		}, []string{"result"}),
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveItems(sourceKind string, n int) {
	if m == nil {
		return
	}
	m.ItemsScanned.WithLabelValues(sourceKind).Add(float64(n))
}

func (m *Metrics) ObserveClassification(shape, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.ClassifierCalls.WithLabelValues(shape, result).Inc()
	m.ClassifierDuration.WithLabelValues(shape).Observe(took.Seconds())
}

func (m *Metrics) ObserveRemediation(sourceKind, outcome, state string) {
	if m == nil {
		return
	}
	m.Remediations.WithLabelValues(sourceKind, outcome, state).Inc()
}

func (m *Metrics) ObservePollError(sourceKind string) {
	if m == nil {
		return
	}
	m.PollErrors.WithLabelValues(sourceKind).Inc()
}

func (m *Metrics) ObserveUnresolvedChannel() {
	if m == nil {
		return
	}
	m.UnresolvedChannels.Inc()
}

func (m *Metrics) ObserveTick(took time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(took.Seconds())
	m.LastTickTimestamp.Set(float64(finished.Unix()))
}

func (m *Metrics) ObserveCleanup(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.AttachmentCleanups.WithLabelValues(result).Inc()
}
