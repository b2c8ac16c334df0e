// ABOUTME: Tests for the Prometheus collectors and metrics handler
// ABOUTME: Checks that gate and operation observations reach the registry

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveGate(t *testing.T) {
	before := testutil.ToFloat64(GateDecisions.WithLabelValues(DecisionExpired))
	ObserveGate(DecisionExpired)
	ObserveGate(DecisionExpired)

	got := testutil.ToFloat64(GateDecisions.WithLabelValues(DecisionExpired)) - before
	if got != 2 {
		t.Errorf("Expected 2 expired decisions, got %f", got)
	}
}

func TestObserveOperation(t *testing.T) {
	okBefore := testutil.ToFloat64(Operations.WithLabelValues("user_add", "ok"))
	errBefore := testutil.ToFloat64(Operations.WithLabelValues("user_add", "error"))

	ObserveOperation("user_add", nil, 10*time.Millisecond)
	ObserveOperation("user_add", errors.New("boom"), 20*time.Millisecond)

	if got := testutil.ToFloat64(Operations.WithLabelValues("user_add", "ok")) - okBefore; got != 1 {
		t.Errorf("Expected 1 successful operation, got %f", got)
	}
	if got := testutil.ToFloat64(Operations.WithLabelValues("user_add", "error")) - errBefore; got != 1 {
		t.Errorf("Expected 1 failed operation, got %f", got)
	}
}

func TestRegister(t *testing.T) {
	registry := prometheus.NewRegistry()

	// This should not panic
	Register(registry)

	// Registering again should panic due to duplicate registration
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when registering metrics twice")
		}
	}()
	Register(registry)
}

func TestHandler(t *testing.T) {
	registry := NewRegistry()
	ObserveLogin(LoginSuccess)

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "turn_admin_login_attempts_total") {
		t.Error("Expected login counter in exposition output")
	}
}
