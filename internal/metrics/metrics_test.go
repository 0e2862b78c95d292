package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m, err := NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordAIAttempt(ResultTransient)
	m.RecordAIAttempt(ResultTransient)
	m.RecordAIAttempt(ResultOK)
	m.RecordAIRequest(OutcomeSuccess, 1.5)
	m.RecordPersist(PersistNoPayload)
	m.RecordHistoryFallback()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.aiAttemptsTotal.WithLabelValues(ResultTransient)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.aiAttemptsTotal.WithLabelValues(ResultOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.aiRequestsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.auditPersistTotal.WithLabelValues(PersistNoPayload)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.historyFallbacks))
}

func TestDoubleRegistrationFails(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewWithRegistry(registry)
	require.NoError(t, err)

	_, err = NewWithRegistry(registry)
	assert.Error(t, err)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAIAttempt(ResultOK)
		m.RecordAIRequest(OutcomeFailure, 0)
		m.RecordPersist(PersistDegraded)
		m.RecordHistoryFallback()
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.RecordHistoryFallback()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pulseesg_history_fallback_total 1")
}
