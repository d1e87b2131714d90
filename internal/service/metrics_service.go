package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and enrollment flows.
// A nil *MetricsService is valid and records nothing.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	enrollments       *prometheus.CounterVec
	assignments       *prometheus.CounterVec
	bulkResults       *prometheus.CounterVec
	joinRedemptions   *prometheus.CounterVec
	rateLimitRejected prometheus.Counter
	notifications     *prometheus.CounterVec
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

	enrollments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "group_enrollments_total",
		Help: "Enrollment attempts by provenance and whether a membership was created",
	}, []string{"provenance", "outcome"})

	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_assignments_created_total",
		Help: "Assignment rows newly created by fan-out",
	}, []string{"provenance"})

	bulkResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_invite_results_total",
		Help: "Per-email outcomes of bulk add-students calls",
	}, []string{"status"})

	joinRedemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "join_token_redemptions_total",
		Help: "QR and invite token redemptions by token kind and result code",
	}, []string{"kind", "result"})

	rateLimitRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Calls rejected by the bulk invite rate limiter",
	})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Notification emails by kind and delivery result",
	}, []string{"kind", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, enrollments, assignments, bulkResults, joinRedemptions, rateLimitRejected, notifications, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		enrollments:       enrollments,
		assignments:       assignments,
		bulkResults:       bulkResults,
		joinRedemptions:   joinRedemptions,
		rateLimitRejected: rateLimitRejected,
		notifications:     notifications,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordEnrollment counts one enrollment attempt.
func (m *MetricsService) RecordEnrollment(provenance models.AssignmentSource, created bool) {
	if m == nil {
		return
	}
	outcome := "existing"
	if created {
		outcome = "created"
	}
	m.enrollments.WithLabelValues(string(provenance), outcome).Inc()
}

// RecordAssignmentsCreated adds newly created assignment rows.
func (m *MetricsService) RecordAssignmentsCreated(provenance models.AssignmentSource, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.assignments.WithLabelValues(string(provenance)).Add(float64(n))
}

// RecordBulkSummary adds the per-outcome counts of one bulk call.
func (m *MetricsService) RecordBulkSummary(summary dto.AddStudentsSummary) {
	if m == nil {
		return
	}
	counts := map[dto.AddStudentStatus]int{
		dto.AddStudentStatusAdded:          summary.Added,
		dto.AddStudentStatusInvited:        summary.Invited,
		dto.AddStudentStatusAlreadyMember:  summary.AlreadyMember,
		dto.AddStudentStatusAlreadyInvited: summary.AlreadyInvited,
		dto.AddStudentStatusFailed:         summary.Failed,
	}
	for status, n := range counts {
		if n > 0 {
			m.bulkResults.WithLabelValues(string(status)).Add(float64(n))
		}
	}
}

// RecordRedemption counts a token redemption attempt. result is "ok" or an error code.
func (m *MetricsService) RecordRedemption(kind, result string) {
	if m == nil {
		return
	}
	m.joinRedemptions.WithLabelValues(kind, result).Inc()
}

// RecordRateLimited counts a rejected call.
func (m *MetricsService) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitRejected.Inc()
}

// RecordNotification counts a notification delivery attempt.
func (m *MetricsService) RecordNotification(kind string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}
