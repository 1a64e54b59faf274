package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics covers claim processing outcomes. Wired from the HTTP
// adapter so the core usecases stay free of collector plumbing.
type PipelineMetrics struct {
	registry *prometheus.Registry

	claimsTotal        *prometheus.CounterVec
	claimDuration      *prometheus.HistogramVec
	claimsInFlight     prometheus.Gauge
	claimDocuments     *prometheus.HistogramVec
	documentsTotal     *prometheus.CounterVec
	discrepanciesTotal *prometheus.CounterVec
}

func NewPipelineMetrics(registry *prometheus.Registry, service string) *PipelineMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	claimsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "pipeline",
			Name:      "claims_total",
			Help:      "Total processed claims by decision status.",
		},
		[]string{"service", "status"},
	)
	claimDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claims",
			Subsystem: "pipeline",
			Name:      "claim_duration_seconds",
			Help:      "End-to-end claim processing duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	claimsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "claims",
			Subsystem: "pipeline",
			Name:      "claims_in_flight",
			Help:      "Number of claims currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	claimDocuments := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claims",
			Subsystem: "pipeline",
			Name:      "claim_documents",
			Help:      "Distribution of documents per claim.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Total processed documents by type and outcome.",
		},
		[]string{"service", "doc_type", "outcome"},
	)
	discrepanciesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "pipeline",
			Name:      "discrepancies_total",
			Help:      "Total cross-document discrepancies by severity.",
		},
		[]string{"service", "severity"},
	)

	registry.MustRegister(
		claimsTotal,
		claimDuration,
		claimsInFlight,
		claimDocuments,
		documentsTotal,
		discrepanciesTotal,
	)

	return &PipelineMetrics{
		registry:           registry,
		claimsTotal:        claimsTotal,
		claimDuration:      claimDuration,
		claimsInFlight:     claimsInFlight,
		claimDocuments:     claimDocuments,
		documentsTotal:     documentsTotal,
		discrepanciesTotal: discrepanciesTotal,
	}
}

func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartClaim() {
	m.claimsInFlight.Inc()
}

// FinishClaim records one completed run. Status is the decision status,
// or "error" when no report was produced.
func (m *PipelineMetrics) FinishClaim(service, status string, documents int, duration time.Duration) {
	m.claimsInFlight.Dec()

	if status == "" {
		status = "error"
	}
	m.claimsTotal.WithLabelValues(service, status).Inc()
	m.claimDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if documents > 0 {
		m.claimDocuments.WithLabelValues(service).Observe(float64(documents))
	}
}

func (m *PipelineMetrics) RecordDocument(service, docType string, degraded bool) {
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	m.documentsTotal.WithLabelValues(service, docType, outcome).Inc()
}

func (m *PipelineMetrics) RecordDiscrepancy(service, severity string) {
	m.discrepanciesTotal.WithLabelValues(service, severity).Inc()
}
