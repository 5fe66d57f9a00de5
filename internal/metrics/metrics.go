// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taxe"

type collectors struct {
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	taxComputed          *prometheus.CounterVec
	oppositionsSubmitted *prometheus.CounterVec
	oppositionsReviewed  *prometheus.CounterVec
	compensationFailures *prometheus.CounterVec
	paymentsRecorded     prometheus.Counter
	authzDecisions       *prometheus.CounterVec
}

var singleton = sync.OnceValue(func() *collectors {
	return &collectors{
		httpRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP requests.",
			Buckets: []float64{
				0.001, 0.005, 0.01, 0.025, 0.05,
				0.1, 0.25, 0.5, 1, 2.5, 5,
			},
		}, []string{"method", "route"}),
		taxComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_computed_total",
			Help:      "Total number of persisted tax computations by property type.",
		}, []string{"property_type"}),
		oppositionsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "opposition",
			Name:      "submitted_total",
			Help:      "Total number of opposition submissions by result.",
		}, []string{"result"}),
		oppositionsReviewed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "opposition",
			Name:      "reviewed_total",
			Help:      "Total number of opposition reviews by decision and outcome.",
		}, []string{"decision", "outcome"}),
		compensationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "opposition",
			Name:      "compensation_failures_total",
			Help:      "Compensating writes that failed and need manual reconciliation.",
		}, []string{"operation"}),
		paymentsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Total number of yearly payments recorded.",
		}),
		authzDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Authorization decisions by permission and result.",
		}, []string{"object", "action", "result"}),
	}
})

func get() *collectors {
	return singleton()
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m := get()
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// TaxComputed records a persisted tax computation.
func TaxComputed(propertyType string) {
	get().taxComputed.WithLabelValues(propertyType).Inc()
}

// OppositionSubmitted records a submission attempt with its result
// (created, invalid, not_found, conflict, error).
func OppositionSubmitted(result string) {
	get().oppositionsSubmitted.WithLabelValues(result).Inc()
}

// OppositionReviewed records a review with its outcome
// (approved, refused, apply_failed, conflict, error).
func OppositionReviewed(decision, outcome string) {
	get().oppositionsReviewed.WithLabelValues(decision, outcome).Inc()
}

// CompensationFailed records a compensating write that did not succeed.
func CompensationFailed(operation string) {
	get().compensationFailures.WithLabelValues(operation).Inc()
}

// PaymentsRecorded adds n recorded yearly payments.
func PaymentsRecorded(n int) {
	get().paymentsRecorded.Add(float64(n))
}

// AuthzDecision records the outcome of a permission check.
func AuthzDecision(object, action string, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	get().authzDecisions.WithLabelValues(object, action, result).Inc()
}
