package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	generateTotal    *prometheus.CounterVec
	generateDuration *prometheus.HistogramVec
	generateInFlight prometheus.Gauge
	enrichmentTotal  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	generateTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launchdeck",
			Subsystem: "worker",
			Name:      "document_generate_total",
			Help:      "Total document generations by status and format.",
		},
		[]string{"service", "status", "format"},
	)
	generateDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "launchdeck",
			Subsystem: "worker",
			Name:      "document_generate_duration_seconds",
			Help:      "Document generation duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	generateInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "launchdeck",
			Subsystem: "worker",
			Name:      "document_generate_in_flight",
			Help:      "Number of in-flight generation jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	enrichmentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launchdeck",
			Subsystem: "worker",
			Name:      "context_enrichment_total",
			Help:      "Total enrichment attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(generateTotal, generateDuration, generateInFlight, enrichmentTotal)

	return &WorkerMetrics{
		registry:         registry,
		generateTotal:    generateTotal,
		generateDuration: generateDuration,
		generateInFlight: generateInFlight,
		enrichmentTotal:  enrichmentTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartGeneration() {
	m.generateInFlight.Inc()
}

func (m *WorkerMetrics) FinishGeneration(service, format string, duration time.Duration, failed bool) {
	m.generateInFlight.Dec()

	status := "completed"
	if failed {
		status = "failed"
	}

	m.generateTotal.WithLabelValues(service, status, format).Inc()
	m.generateDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveEnrichment(service string, enriched bool) {
	outcome := "skipped"
	if enriched {
		outcome = "enriched"
	}
	m.enrichmentTotal.WithLabelValues(service, outcome).Inc()
}
