package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

// WorkerMetrics tracks stored-document classification in the background
// worker. Outcomes share the pipeline's labels so dashboards can join them.
type WorkerMetrics struct {
	registry *prometheus.Registry

	documentsTotal    *prometheus.CounterVec
	documentDuration  *prometheus.HistogramVec
	documentsInFlight prometheus.Gauge
	verdictsTotal     *prometheus.CounterVec
	queueLag          *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	m := &WorkerMetrics{
		registry: registry,
		documentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "documents_total",
				Help:      "Stored documents processed, by pipeline outcome.",
			},
			[]string{"service", "outcome"},
		),
		documentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "document_duration_seconds",
				Help:      "Time from pickup to stored verdict, by pipeline outcome.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60},
			},
			[]string{"service", "outcome"},
		),
		documentsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "worker",
				Name:        "documents_in_flight",
				Help:        "Stored documents currently being classified.",
				ConstLabels: prometheus.Labels{"service": service},
			},
		),
		verdictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "classification_verdicts_total",
				Help:      "Stored classification verdicts by POA flag and model confidence.",
			},
			[]string{"service", "is_poa", "confidence"},
		),
		queueLag: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "queue_lag_seconds",
				Help:      "Delay between upload and classification start.",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"service"},
		),
	}

	registry.MustRegister(m.documentsTotal, m.documentDuration, m.documentsInFlight, m.verdictsTotal, m.queueLag)
	return m
}

func (m *WorkerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.documentsInFlight.Inc()
}

// FinishDocument records one processed document. err is labelled with the
// same outcome taxonomy as the pipeline phases.
func (m *WorkerMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.documentsInFlight.Dec()

	outcome := outcomeOf(err)
	m.documentsTotal.WithLabelValues(service, outcome).Inc()
	m.documentDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

// RecordVerdict counts a stored classification. A nil verdict is ignored.
func (m *WorkerMetrics) RecordVerdict(service string, verdict *domain.Classification) {
	if verdict == nil {
		return
	}
	confidence := string(verdict.Confidence)
	if confidence == "" {
		confidence = "unknown"
	}
	m.verdictsTotal.WithLabelValues(service, strconv.FormatBool(verdict.IsPOA), confidence).Inc()
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
