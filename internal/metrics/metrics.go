// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookings_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_auth_attempts_total",
		Help: "Login and registration attempts by result",
	}, []string{"action", "result"})

	sessionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_session_rejections_total",
		Help: "Requests rejected by the session verifier or role gate",
	}, []string{"reason"})

	timeLogEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_timelog_events_total",
		Help: "Clock-in, clock-out and review operations by result",
	}, []string{"action", "result"})

	workedMinutes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookings_timelog_worked_minutes",
		Help:    "Length of closed time logs in minutes",
		Buckets: []float64{30, 60, 120, 240, 360, 480, 600, 720, 960},
	})

	invitationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_invitation_events_total",
		Help: "Invitation lifecycle operations",
	}, []string{"action"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveAuth counts a login or registration attempt.
func ObserveAuth(action, result string) {
	authAttempts.WithLabelValues(action, result).Inc()
}

// ObserveSessionRejection counts a request stopped before reaching a handler.
func ObserveSessionRejection(reason string) {
	sessionRejections.WithLabelValues(reason).Inc()
}

// ObserveTimeLog counts a time-tracking operation.
func ObserveTimeLog(action, result string) {
	timeLogEvents.WithLabelValues(action, result).Inc()
}

// ObserveWorkedMinutes records the length of a closed time log.
func ObserveWorkedMinutes(minutes int64) {
	workedMinutes.Observe(float64(minutes))
}

// ObserveInvitation counts an invitation lifecycle operation.
func ObserveInvitation(action string) {
	invitationEvents.WithLabelValues(action).Inc()
}
