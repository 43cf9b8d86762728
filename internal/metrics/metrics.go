// Package metrics exposes pipeline counters as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsDigest/internal/ports"
)

const namespace = "newsdigest"

// Metrics implements ports.Metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	articles    *prometheus.CounterVec
	sourceFails *prometheus.CounterVec
	degraded    *prometheus.CounterVec
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
}

var _ ports.Metrics = (*Metrics)(nil)

// New registers all collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		articles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_ingested_total",
			Help:      "Articles inserted, by source.",
		}, []string{"source"}),
		sourceFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Sources that contributed nothing because of an error.",
		}, []string{"source"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_degraded_total",
			Help:      "Summaries replaced by a fallback text, by stage.",
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished digest runs, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of digest runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
	m.registry.MustRegister(
		m.articles, m.sourceFails, m.degraded, m.runs, m.duration, m.lastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ArticlesIngested(source string, n int) {
	if n > 0 {
		m.articles.WithLabelValues(source).Add(float64(n))
	}
}

func (m *Metrics) SourceFailed(source string) {
	m.sourceFails.WithLabelValues(source).Inc()
}

func (m *Metrics) SummaryDegraded(stage string) {
	m.degraded.WithLabelValues(stage).Inc()
}

func (m *Metrics) RunFinished(success bool, elapsed time.Duration) {
	result := "failure"
	if success {
		result = "success"
		m.lastSuccess.SetToCurrentTime()
	}
	m.runs.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Registry is exposed for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
