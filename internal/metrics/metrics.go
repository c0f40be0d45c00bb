// Package metrics exposes Prometheus instrumentation for the OAuth flow and
// the HTTP surface in front of it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
)

// Ensure Metrics implements OAuthMetrics
var _ driven.OAuthMetrics = (*Metrics)(nil)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "agency_connect"

// unknownProvider labels observations made before a provider is trusted
const unknownProvider = "unknown"

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// OAuthCallbacks counts callback outcomes by provider
	OAuthCallbacks *prometheus.CounterVec
	// OAuthAuthorizations counts authorization starts by provider and result
	OAuthAuthorizations *prometheus.CounterVec
	// TokenExchangeDuration tracks provider token endpoint latency
	TokenExchangeDuration *prometheus.HistogramVec
	// HTTPRequestsTotal counts requests by route pattern
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestDuration tracks request latency by route pattern
	HTTPRequestDuration *prometheus.HistogramVec
	// HTTPRequestsInFlight current HTTP requests being processed
	HTTPRequestsInFlight prometheus.Gauge
	// RateLimitedTotal counts requests rejected by the rate limiter
	RateLimitedTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics on a private registry
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		OAuthCallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oauth_callbacks_total",
				Help:      "Total number of OAuth callbacks by outcome",
			},
			[]string{"provider", "outcome"},
		),
		OAuthAuthorizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oauth_authorizations_total",
				Help:      "Total number of OAuth authorization starts by result",
			},
			[]string{"provider", "result"},
		),
		TokenExchangeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "token_exchange_duration_seconds",
				Help:      "Provider token exchange latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
		),
	}

	registry.MustRegister(
		m.OAuthCallbacks,
		m.OAuthAuthorizations,
		m.TokenExchangeDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RateLimitedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns a Prometheus handler for these metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for gathering in tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// AuthorizationStarted records a BeginAuthorization or Reauthorize result
func (m *Metrics) AuthorizationStarted(provider domain.ProviderType, result string) {
	m.OAuthAuthorizations.WithLabelValues(providerLabel(provider), result).Inc()
}

// CallbackCompleted records a callback outcome
func (m *Metrics) CallbackCompleted(provider domain.ProviderType, outcome domain.CallbackOutcome) {
	m.OAuthCallbacks.WithLabelValues(providerLabel(provider), string(outcome)).Inc()
}

// TokenExchangeObserved records how long a token exchange took
func (m *Metrics) TokenExchangeObserved(provider domain.ProviderType, duration time.Duration) {
	m.TokenExchangeDuration.WithLabelValues(providerLabel(provider)).Observe(duration.Seconds())
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(route, method, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// IncRateLimited counts a throttled request
func (m *Metrics) IncRateLimited() {
	m.RateLimitedTotal.Inc()
}

// Label cardinality stays bounded: anything outside the closed provider set
// collapses to "unknown".
func providerLabel(provider domain.ProviderType) string {
	if !provider.IsKnown() {
		return unknownProvider
	}
	return string(provider)
}
