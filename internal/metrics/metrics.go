// Package metrics defines the Prometheus metrics exported by the development
// API server on /metrics. Metrics register with the default registry on
// package init through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "campusportal"

// LoginAttemptsTotal counts POST /login outcomes.
// Label:
//   - result: "success", "invalid_credentials", "bad_request" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokensRevokedTotal counts access tokens revoked by password changes.
var TokensRevokedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_revoked_total",
		Help:      "Total number of access tokens revoked after a password change.",
	},
)

// TokensCleanedTotal counts issued-token rows removed by the cleaner.
var TokensCleanedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_cleaned_total",
		Help:      "Total number of expired or revoked token records deleted.",
	},
)

// HTTPRequestDuration measures request latency.
// Labels:
//   - method: HTTP method
//   - route: chi route pattern, e.g. "/admin/users/"
//   - status: response status code
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests handled by the API.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)
