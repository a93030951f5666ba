package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

// PipelineMetrics records per-phase timings of the analysis pipeline.
type PipelineMetrics struct {
	service string

	extractDuration  *prometheus.HistogramVec
	extractTotal     *prometheus.CounterVec
	completeDuration *prometheus.HistogramVec
	completeTotal    *prometheus.CounterVec
}

func NewPipelineMetrics(service string, reg prometheus.Registerer) *PipelineMetrics {
	extractDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "extract_duration_seconds",
			Help:      "Text extraction duration by method.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 12, 20},
		},
		[]string{"service", "method"},
	)
	extractTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "extract_total",
			Help:      "Text extractions by method and outcome.",
		},
		[]string{"service", "method", "outcome"},
	)
	completeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "completion_duration_seconds",
			Help:      "Completion gateway duration by task.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 20, 30, 45},
		},
		[]string{"service", "task"},
	)
	completeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "completion_total",
			Help:      "Completion gateway calls by task and outcome.",
		},
		[]string{"service", "task", "outcome"},
	)

	reg.MustRegister(extractDuration, extractTotal, completeDuration, completeTotal)

	return &PipelineMetrics{
		service:          service,
		extractDuration:  extractDuration,
		extractTotal:     extractTotal,
		completeDuration: completeDuration,
		completeTotal:    completeTotal,
	}
}

func (m *PipelineMetrics) ObserveExtraction(method domain.ExtractionMethod, duration time.Duration, err error) {
	label := string(method)
	if label == "" {
		label = "none"
	}
	outcome := outcomeOf(err)
	m.extractTotal.WithLabelValues(m.service, label, outcome).Inc()
	if err == nil {
		m.extractDuration.WithLabelValues(m.service, label).Observe(duration.Seconds())
	}
}

func (m *PipelineMetrics) ObserveCompletion(task domain.TaskKind, duration time.Duration, err error) {
	m.completeTotal.WithLabelValues(m.service, string(task), outcomeOf(err)).Inc()
	m.completeDuration.WithLabelValues(m.service, string(task)).Observe(duration.Seconds())
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrUnsupportedType):
		return "unsupported"
	case errors.Is(err, domain.ErrEmptyText), errors.Is(err, domain.ErrEmptyCompletion):
		return "empty"
	case errors.Is(err, domain.ErrPDFParse), errors.Is(err, domain.ErrOCR):
		return "unreadable"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, domain.ErrGateway):
		return "gateway"
	default:
		return "error"
	}
}
