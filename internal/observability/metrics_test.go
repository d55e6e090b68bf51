package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/policy"
)

func TestRecordDecision(t *testing.T) {
	m := NewMetrics()
	m.RecordDecision(true, policy.ClassAllowed, 120*time.Microsecond)
	m.RecordDecision(false, policy.ClassExpired, 80*time.Microsecond)
	m.RecordDecision(false, policy.ClassExpired, 90*time.Microsecond)
	m.RecordDecision(false, policy.ClassPolicyVeto, 70*time.Microsecond)

	require.Equal(t, float64(1), testutil.ToFloat64(m.decisionsTotal.WithLabelValues("allow", policy.ClassAllowed)))
	require.Equal(t, float64(2), testutil.ToFloat64(m.decisionsTotal.WithLabelValues("deny", policy.ClassExpired)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.decisionsTotal.WithLabelValues("deny", policy.ClassPolicyVeto)))
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := NewMetrics()
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, float64(1), testutil.ToFloat64(m.requestsTotal.WithLabelValues("unknown", "418")))
}

func TestMetricsEndpointServes(t *testing.T) {
	m := NewMetrics()
	m.RecordDecision(true, policy.ClassAllowed, time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "studio_authz_decisions_total")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordDecision(true, policy.ClassAllowed, time.Millisecond)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	require.NotNil(t, m.Middleware(next))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
