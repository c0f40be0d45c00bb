package driven

import (
	"context"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
)

// ProviderRegistry exposes the immutable per-provider OAuth configuration.
type ProviderRegistry interface {
	// Lookup returns the configuration for a provider, or false if the
	// provider is unknown.
	Lookup(provider domain.ProviderType) (*domain.ProviderConfig, bool)

	// AuthorizationURL composes the provider authorization URL carrying state.
	AuthorizationURL(cfg *domain.ProviderConfig, state string) (string, error)
}

// TokenExchanger trades an authorization code for tokens at the provider's
// token endpoint and normalizes the provider-specific response.
type TokenExchanger interface {
	// Exchange performs a single bounded POST; it never retries.
	Exchange(ctx context.Context, cfg *domain.ProviderConfig, code string) (*domain.TokenSet, error)
}
