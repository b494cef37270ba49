package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	adminRequestsTotal   *prometheus.CounterVec
	adminLatencySeconds  *prometheus.HistogramVec
	adminErrorsTotal     *prometheus.CounterVec
	formTransitionsTotal *prometheus.CounterVec
	notificationsTotal   *prometheus.CounterVec
	hallTicketsTotal     prometheus.Counter
	uploadRejectsTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the exam API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exams_admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exams_admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exams_admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		formTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exams_form_transitions_total",
			Help: "Exam form submissions and acceptances.",
		}, []string{"status"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exams_notifications_total",
			Help: "Acceptance notifications by outcome.",
		}, []string{"outcome"})

		hallTicketsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exams_hall_tickets_rendered_total",
			Help: "Hall ticket PDFs rendered.",
		})

		uploadRejectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exams_document_upload_rejections_total",
			Help: "Exam document uploads rejected during validation.",
		}, []string{"reason"})

		prometheus.MustRegister(
			adminRequestsTotal,
			adminLatencySeconds,
			adminErrorsTotal,
			formTransitionsTotal,
			notificationsTotal,
			hallTicketsTotal,
			uploadRejectsTotal,
		)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// FormTransitions counts form submissions ("pending") and acceptances ("accepted").
func FormTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return formTransitionsTotal
}

// Notifications counts acceptance notifications by outcome (sent, failed, skipped).
func Notifications() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// HallTicketsRendered counts generated hall tickets.
func HallTicketsRendered() prometheus.Counter {
	RegisterMetrics()
	return hallTicketsTotal
}

// UploadRejections counts rejected document uploads by reason.
func UploadRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectsTotal
}
