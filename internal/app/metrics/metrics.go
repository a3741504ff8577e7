// Package metrics exposes the application's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "intake",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	applicationsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "applications",
			Name:      "submitted_total",
			Help:      "Total number of membership applications accepted.",
		},
	)

	applicationDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "applications",
			Name:      "decisions_total",
			Help:      "Total number of terminal decisions by outcome.",
		},
		[]string{"outcome"},
	)

	roleGrants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "roles",
			Name:      "grants_total",
			Help:      "Total number of role grants by role.",
		},
		[]string{"role"},
	)

	notificationReads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "notifications",
			Name:      "reads_total",
			Help:      "Total number of notifications marked read.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		applicationsSubmitted,
		applicationDecisions,
		roleGrants,
		notificationReads,
	)
}

// RecordSubmission counts an accepted application.
func RecordSubmission() {
	applicationsSubmitted.Inc()
}

// RecordDecision counts a terminal decision.
func RecordDecision(outcome string) {
	applicationDecisions.WithLabelValues(outcome).Inc()
}

// RecordRoleGrant counts a role grant.
func RecordRoleGrant(role string) {
	roleGrants.WithLabelValues(role).Inc()
}

// RecordNotificationRead counts a read acknowledgement.
func RecordNotificationRead() {
	notificationReads.Inc()
}

// RecordHTTPRequest records one handled request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncInFlight marks a request in progress.
func IncInFlight() { httpInFlight.Inc() }

// DecInFlight marks a request finished.
func DecInFlight() { httpInFlight.Dec() }

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
