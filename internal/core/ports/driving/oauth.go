package driving

import (
	"context"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
)

// OAuthService runs the authorization-code flow that connects a tenant to a
// provider and stores the resulting credentials sealed.
type OAuthService interface {
	// BeginAuthorization creates a disconnected integration for the tenant and
	// returns the provider authorization URL carrying a signed state.
	// Returns domain.ErrUnknownProvider, domain.ErrMisconfigured or
	// domain.ErrAlreadyExists (Conflict).
	BeginAuthorization(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error)

	// Reauthorize issues a fresh authorization URL for an existing integration
	// so its tokens can be replaced without changing its ID.
	// Returns domain.ErrNotFound if the tenant has no integration for the provider.
	Reauthorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error)

	// HandleCallback resolves a provider redirect to exactly one outcome.
	// It never returns an error: every failure is an outcome code.
	HandleCallback(ctx context.Context, req CallbackRequest) *CallbackResult
}

// AuthorizeRequest represents a request to start an OAuth flow.
// @Description Request to start OAuth authorization flow
type AuthorizeRequest struct {
	// TenantID is taken from the authenticated session, never from the body.
	TenantID string `json:"-"`

	// Provider is the OAuth provider (slack, gmail, google_ads, meta_ads)
	Provider domain.ProviderType `json:"provider" example:"gmail"`
}

// AuthorizeResponse contains the authorization URL.
// @Description Response containing the OAuth authorization URL
type AuthorizeResponse struct {
	// AuthorizationURL is the URL to redirect the user to for authorization.
	AuthorizationURL string `json:"authorization_url" example:"https://accounts.google.com/o/oauth2/v2/auth?client_id=..."`

	// IntegrationID is the record the callback will update.
	IntegrationID string `json:"integration_id" example:"0b6f3d2e-7f57-4a3c-9b43-1d3c0f1f2a10"`

	// ExpiresAt is when the signed state stops being accepted (10 minutes).
	ExpiresAt string `json:"expires_at" example:"2024-01-15T10:10:00Z"`
}

// CallbackRequest represents the OAuth callback from the provider.
// @Description OAuth callback parameters from provider redirect
type CallbackRequest struct {
	// Code is the authorization code from the provider.
	Code string `json:"code" example:"4/0AX4XfWh"`

	// State is the signed state token returned by the provider.
	State string `json:"state" example:"eyJpbnRlZ3JhdGlvbklkIjoi.Jk3c2"`

	// Error is set if the provider returned an error. Its text is never
	// reflected back to the user.
	Error string `json:"error,omitempty" example:"access_denied"`
}

// CallbackResult is the single outcome of a callback.
type CallbackResult struct {
	Outcome domain.CallbackOutcome

	// Provider and IntegrationID are set once the state has been verified.
	Provider      domain.ProviderType
	IntegrationID string
}

// RedirectURL builds the settings redirect for the result.
func (r *CallbackResult) RedirectURL(settingsURL string) string {
	return domain.RedirectURL(settingsURL, r.Outcome, r.Provider)
}

// OAuthError represents an OAuth-specific error on the same-origin
// authorization path.
type OAuthError struct {
	Code        string `json:"error" example:"provider_not_configured"`
	Description string `json:"error_description" example:"The provider is not configured"`
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// Common OAuth errors
var (
	ErrOAuthUnknownProvider  = &OAuthError{Code: "unknown_provider", Description: "The provider is not supported"}
	ErrOAuthNotConfigured    = &OAuthError{Code: "provider_not_configured", Description: "The provider is not configured"}
	ErrOAuthAlreadyConnected = &OAuthError{Code: "already_connected", Description: "An integration for this provider already exists"}
	ErrOAuthNotConnected     = &OAuthError{Code: "integration_not_found", Description: "No integration exists for this provider"}
	ErrOAuthInvalidRequest   = &OAuthError{Code: "invalid_request", Description: "The request is missing a required parameter"}
	ErrOAuthServerError      = &OAuthError{Code: "server_error", Description: "The authorization could not be started"}
)
