package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics covers the worker and scheduler: per-document routing
// outcomes plus retraining submissions.
type PipelineMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	routedTotal     *prometheus.CounterVec
	retrainTotal    *prometheus.CounterVec
	retrainItems    prometheus.Counter
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iflow",
			Subsystem: "pipeline",
			Name:      "document_process_total",
			Help:      "Total processed documents by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iflow",
			Subsystem: "pipeline",
			Name:      "document_process_duration_seconds",
			Help:      "Document processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "iflow",
			Subsystem: "pipeline",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight document processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	routedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iflow",
			Subsystem: "pipeline",
			Name:      "documents_routed_total",
			Help:      "Total routed documents by destination and document type.",
		},
		[]string{"service", "destination", "doc_type"},
	)
	retrainTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iflow",
			Subsystem: "retrain",
			Name:      "runs_total",
			Help:      "Total retraining runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	retrainItems := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "iflow",
			Subsystem: "retrain",
			Name:      "items_submitted_total",
			Help:      "Total review items submitted for retraining.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, routedTotal, retrainTotal, retrainItems)

	return &PipelineMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		routedTotal:     routedTotal,
		retrainTotal:    retrainTotal,
		retrainItems:    retrainItems,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *PipelineMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) RecordRouted(service, destination, docType string) {
	if destination == "" {
		destination = "unknown"
	}
	if docType == "" {
		docType = "unknown"
	}
	m.routedTotal.WithLabelValues(service, destination, docType).Inc()
}

func (m *PipelineMetrics) RecordRetrainRun(service string, submitted int, err error) {
	outcome := "submitted"
	switch {
	case err != nil:
		outcome = "error"
	case submitted == 0:
		outcome = "skipped"
	}
	m.retrainTotal.WithLabelValues(service, outcome).Inc()
	if submitted > 0 {
		m.retrainItems.Add(float64(submitted))
	}
}
