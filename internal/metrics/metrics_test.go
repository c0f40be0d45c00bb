package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
)

func TestMetricsRecordingAndHandler(t *testing.T) {
	m := NewMetrics("test")

	m.AuthorizationStarted(domain.ProviderTypeGmail, "started")
	m.CallbackCompleted(domain.ProviderTypeSlack, domain.OutcomeSuccess)
	m.TokenExchangeObserved(domain.ProviderTypeSlack, 120*time.Millisecond)
	m.RecordHTTPRequest("GET /health", "GET", "200", time.Millisecond)
	m.IncRateLimited()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	for _, name := range []string{
		"test_oauth_authorizations_total",
		"test_oauth_callbacks_total",
		"test_token_exchange_duration_seconds",
		"test_http_requests_total",
		"test_rate_limited_total",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}

func TestCallbackCompleted_UnverifiedProvider(t *testing.T) {
	m := NewMetrics("test")

	m.CallbackCompleted("", domain.OutcomeInvalidState)
	m.CallbackCompleted("made-up", domain.OutcomeInvalidState)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	assert.True(t, metricHasLabel(families, "test_oauth_callbacks_total", "provider", "unknown"))
	assert.False(t, metricHasLabel(families, "test_oauth_callbacks_total", "provider", "made-up"))
	assert.True(t, metricHasLabel(families, "test_oauth_callbacks_total", "outcome", "invalid_state"))
}

func TestInstrumentRoute(t *testing.T) {
	m := NewMetrics("testmw")

	mux := http.NewServeMux()
	mux.Handle("GET /ok", m.InstrumentRoute("GET /ok", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
	mux.Handle("GET /items/{id}", m.InstrumentRoute("GET /items/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	for _, path := range []string{"/ok", "/items/abc"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	}

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	assert.True(t, metricHasLabel(families, "testmw_http_requests_total", "route", "GET /ok"))
	assert.True(t, metricHasLabel(families, "testmw_http_requests_total", "status", "204"))
	assert.True(t, metricHasLabel(families, "testmw_http_requests_total", "route", "GET /items/{id}"))
	assert.False(t, metricHasLabel(families, "testmw_http_requests_total", "route", "/items/abc"))
}

func metricHasLabel(families []*dto.MetricFamily, name, key, value string) bool {
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.Metric {
			for _, label := range metric.Label {
				if label.GetName() == key && label.GetValue() == value {
					return true
				}
			}
		}
	}
	return false
}
