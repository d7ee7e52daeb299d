// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the prefectauth proxy.
package observability

import "github.com/prometheus/client_golang/prometheus"

// ProxyBuckets defines histogram buckets for proxied Prefect API calls,
// ranging from 5ms to 60s.
var ProxyBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 10, 30, 60}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefectauth_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prefectauth_request_duration_seconds",
			Help:    "Request duration",
			Buckets: ProxyBuckets,
		},
		[]string{"method"},
	)

	// InFlightRequests tracks requests currently being served, including
	// upgraded websocket connections for their whole lifetime.
	InFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prefectauth_requests_in_flight",
			Help: "Requests in flight",
		},
	)

	// AuthDecisionsTotal counts gate decisions. subject is set for admitted
	// requests, reason for rejected ones.
	AuthDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefectauth_auth_decisions_total",
			Help: "Authentication decisions",
		},
		[]string{"verdict", "subject", "reason"},
	)

	// UpstreamErrorsTotal counts requests the upstream Prefect server could
	// not answer.
	UpstreamErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prefectauth_upstream_errors_total",
			Help: "Upstream errors",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		InFlightRequests,
		AuthDecisionsTotal,
		UpstreamErrorsTotal,
	)
}
