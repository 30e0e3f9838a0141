// Package metrics defines the custom Prometheus metrics of the identity
// service. HTTP request metrics come from the echoprometheus middleware.
//
// All metrics register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ResultSuccess is the result label for a successful operation. Failures
// use the failure kind, e.g. "VALIDATION_ERROR".
const ResultSuccess = "success"

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success" or the failure kind
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts authentication attempts that reached the service.
// Label:
//   - result: "success" or the failure kind
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of authentication attempts, by result.",
	},
	[]string{"result"},
)

// LoginThrottledTotal counts logins rejected by the attempt limiter.
var LoginThrottledTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_throttled_total",
		Help:      "Total number of login requests rejected for too many failed attempts.",
	},
)

// TokensIssuedTotal counts access tokens handed out.
var TokensIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of access tokens issued.",
	},
)

// LimiterErrorsTotal counts limiter calls that failed and were skipped.
var LimiterErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_limiter_errors_total",
		Help:      "Total number of login limiter errors; the login proceeds unthrottled.",
	},
)
