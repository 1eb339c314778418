package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for batch verification and its HTTP surface.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	DocumentsProcessed *prometheus.CounterVec
	FraudSignals       *prometheus.CounterVec
	HighRiskDocuments  prometheus.Counter
	BatchLatency       prometheus.Histogram
	BatchSize          prometheus.Histogram
	TemplateSkipped    prometheus.Counter
	DetectorErrors     *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New registers every collector on reg. Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DocumentsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payslip_documents_processed_total",
			Help: "Documents verified, by document type and verification outcome",
		}, []string{"document_type", "outcome"}), // outcome: "verified", "failed"

		FraudSignals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payslip_fraud_signals_total",
			Help: "Fraud signals emitted, by kind",
		}, []string{"kind"}),

		HighRiskDocuments: f.NewCounter(prometheus.CounterOpts{
			Name: "payslip_high_risk_documents_total",
			Help: "Documents whose overall confidence fell below the fraud threshold",
		}),

		BatchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "payslip_batch_duration_seconds",
			Help:    "Duration of a full batch verification",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "payslip_batch_documents",
			Help:    "Number of documents per verification batch",
			Buckets: []float64{1, 2, 3, 6, 12, 25, 50, 100, 200},
		}),

		TemplateSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "payslip_template_analysis_skipped_total",
			Help: "Batches whose template-reuse analysis was skipped for size",
		}),

		DetectorErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payslip_detector_errors_total",
			Help: "Detector failures isolated during scoring, by detector",
		}, []string{"detector"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint", "status"}),
	}
}

func (m *Metrics) ObserveDocument(documentType string, verified, highRisk bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if verified {
		outcome = "verified"
	}
	m.DocumentsProcessed.WithLabelValues(documentType, outcome).Inc()
	if highRisk {
		m.HighRiskDocuments.Inc()
	}
}

func (m *Metrics) IncrementSignal(kind string) {
	if m != nil {
		m.FraudSignals.WithLabelValues(kind).Inc()
	}
}

// ObserveBatch records the size and total duration of one batch.
func (m *Metrics) ObserveBatch(documents int, d time.Duration) {
	if m != nil {
		m.BatchSize.Observe(float64(documents))
		m.BatchLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementTemplateSkipped() {
	if m != nil {
		m.TemplateSkipped.Inc()
	}
}

func (m *Metrics) IncrementDetectorError(detector string) {
	if m != nil {
		m.DetectorErrors.WithLabelValues(detector).Inc()
	}
}

func (m *Metrics) ObserveHTTP(method, endpoint, status string, d time.Duration) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(method, endpoint, status).Inc()
		m.HTTPDuration.WithLabelValues(method, endpoint, status).Observe(d.Seconds())
	}
}
