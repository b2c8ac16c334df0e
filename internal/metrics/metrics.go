// ABOUTME: Prometheus collectors for gate decisions, logins, and relay operations
// ABOUTME: Collectors are package-level and registered once against a registry

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gate decision labels
const (
	DecisionPublic        = "public"
	DecisionAllowed       = "allowed"
	DecisionNoToken       = "no_token"
	DecisionExpired       = "expired"
	DecisionInvalid       = "signature_invalid"
	DecisionForbidden     = "forbidden"
	DecisionMisconfigured = "misconfigured"
)

// Login outcome labels
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid_credentials"
	LoginBadRequest  = "bad_request"
	LoginRateLimited = "rate_limited"
	LoginStoreError  = "store_error"
)

// GateDecisions counts authentication gate outcomes
var GateDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "turn_admin_gate_decisions_total",
	Help: "Total number of requests seen by the authentication gate by decision",
}, []string{"decision"})

// LoginAttempts counts login attempts by outcome
var LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "turn_admin_login_attempts_total",
	Help: "Total number of login attempts by outcome",
}, []string{"result"})

// Operations counts privileged relay operations by name and success
var Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "turn_admin_operations_total",
	Help: "Total number of privileged relay operations by operation and result",
}, []string{"operation", "result"})

// OperationDuration tracks how long external relay commands take
var OperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "turn_admin_operation_duration_seconds",
	Help:    "Duration of privileged relay operations in seconds",
	Buckets: prometheus.DefBuckets,
}, []string{"operation"})

// NewRegistry returns a registry with the process and Go collectors plus every
// turn-admin collector registered.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Register(registry)
	return registry
}

// Register registers all turn-admin collectors with the provided registry
func Register(registry *prometheus.Registry) {
	registry.MustRegister(GateDecisions)
	registry.MustRegister(LoginAttempts)
	registry.MustRegister(Operations)
	registry.MustRegister(OperationDuration)
}

// Handler serves the registry in the Prometheus exposition format
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// ObserveGate records one gate decision
func ObserveGate(decision string) {
	GateDecisions.WithLabelValues(decision).Inc()
}

// ObserveLogin records one login outcome
func ObserveLogin(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}

// ObserveOperation records a relay operation and its duration
func ObserveOperation(operation string, err error, duration time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	Operations.WithLabelValues(operation, result).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
