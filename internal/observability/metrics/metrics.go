// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/naijatax/taxguide/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the registry so tests can run isolated instances
// side by side.
type Metrics struct {
	registry *prometheus.Registry

	askTotal      *prometheus.CounterVec
	askDenied     *prometheus.CounterVec
	paymentsTotal *prometheus.CounterVec
	sweepTotal    *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func New(cfg config.Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	constLabels := prometheus.Labels{"service": cfg.AppName}

	m := &Metrics{
		registry: registry,
		askTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "taxguide_ask_total",
			Help:        "Answered questions by source and mode.",
			ConstLabels: constLabels,
		}, []string{"source", "mode"}),
		askDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "taxguide_ask_denied_total",
			Help:        "Questions rejected by the entitlement gate.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "taxguide_payment_webhooks_total",
			Help:        "Processed payment webhook deliveries by outcome.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		sweepTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "taxguide_sweep_processed_total",
			Help:        "Records touched by the periodic sweeps.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "taxguide_http_request_duration_seconds",
			Help:        "HTTP request latency by route.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
	registry.MustRegister(m.askTotal, m.askDenied, m.paymentsTotal, m.sweepTotal, m.httpDuration)

	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordAsk(source, mode string) {
	if m == nil {
		return
	}
	m.askTotal.WithLabelValues(source, mode).Inc()
}

func (m *Metrics) RecordAskDenied(reason string) {
	if m == nil {
		return
	}
	m.askDenied.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordPayment(status string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordSweep(job string, processed int) {
	if m == nil {
		return
	}
	m.sweepTotal.WithLabelValues(job).Add(float64(processed))
}

func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
