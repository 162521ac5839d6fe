package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and
// allocation outcomes.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	assignments     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	cancellations   prometheus.Counter
	batchRuns       prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supervision_assignments_total",
		Help: "Committed supervision assignments by mode",
	}, []string{"mode"})

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supervision_rejections_total",
		Help: "Rejected assignment attempts by error code",
	}, []string{"code"})

	cancellations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "supervision_cancellations_total",
		Help: "Cancelled supervision assignments",
	})

	batchRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auto_assign_batch_runs_total",
		Help: "Completed batch auto-assignment runs",
	})

	registry.MustRegister(requestDuration, requestTotal, assignments, rejections, cancellations, batchRuns)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		assignments:     assignments,
		rejections:      rejections,
		cancellations:   cancellations,
		batchRuns:       batchRuns,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// IncAssignment counts one committed assignment ("manual" or "auto").
func (s *MetricsService) IncAssignment(mode string) {
	s.assignments.WithLabelValues(mode).Inc()
}

// IncAllocationRejected counts one rejected assignment attempt.
func (s *MetricsService) IncAllocationRejected(code string) {
	s.rejections.WithLabelValues(code).Inc()
}

// IncCancellation counts one cancelled assignment.
func (s *MetricsService) IncCancellation() {
	s.cancellations.Inc()
}

// IncBatchRun counts one completed batch auto-assignment run.
func (s *MetricsService) IncBatchRun() {
	s.batchRuns.Inc()
}
