package driven

import (
	"time"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
)

// OAuthMetrics records authorization flow outcomes.
type OAuthMetrics interface {
	AuthorizationStarted(provider domain.ProviderType, result string)
	CallbackCompleted(provider domain.ProviderType, outcome domain.CallbackOutcome)
	TokenExchangeObserved(provider domain.ProviderType, duration time.Duration)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) AuthorizationStarted(domain.ProviderType, string) {}
func (NopMetrics) CallbackCompleted(domain.ProviderType, domain.CallbackOutcome) {}
func (NopMetrics) TokenExchangeObserved(domain.ProviderType, time.Duration) {}
