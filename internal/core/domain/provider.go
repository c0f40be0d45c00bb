package domain

import (
	"fmt"
	"strings"
)

// ProviderType identifies an external OAuth provider an agency can connect
type ProviderType string

const (
	// Workspace chat
	ProviderTypeSlack ProviderType = "slack"

	// Mail
	ProviderTypeGmail ProviderType = "gmail"

	// Ad platforms
	ProviderTypeGoogleAds ProviderType = "google_ads"
	ProviderTypeMetaAds   ProviderType = "meta_ads"
)

// KnownProviders returns the closed set of providers, in display order.
func KnownProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeSlack,
		ProviderTypeGmail,
		ProviderTypeGoogleAds,
		ProviderTypeMetaAds,
	}
}

// IsKnown reports whether p is a member of the closed provider set.
func (p ProviderType) IsKnown() bool {
	for _, known := range KnownProviders() {
		if p == known {
			return true
		}
	}
	return false
}

// ParseProviderType validates a raw provider identifier.
func ParseProviderType(raw string) (ProviderType, error) {
	p := ProviderType(strings.TrimSpace(raw))
	if !p.IsKnown() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
	}
	return p, nil
}

// ProviderConfig holds the OAuth client configuration for one provider.
// It is built once at startup and never mutated afterwards.
type ProviderConfig struct {
	Provider     ProviderType `json:"provider" yaml:"-"`
	AuthURL      string       `json:"auth_url" yaml:"auth_url"`
	TokenURL     string       `json:"token_url" yaml:"token_url"`
	ClientID     string       `json:"client_id" yaml:"client_id"`
	ClientSecret string       `json:"-" yaml:"client_secret"` // never serialize
	Scopes       []string     `json:"scopes" yaml:"scopes"`
	RedirectURL  string       `json:"redirect_url" yaml:"redirect_url"`

	// ExtraAuthParams are appended to the authorization URL (access_type, prompt, ...)
	ExtraAuthParams map[string]string `json:"extra_auth_params,omitempty" yaml:"extra_auth_params"`

	// ExtraTokenParams are added to the token exchange form body (grant_type, ...)
	ExtraTokenParams map[string]string `json:"extra_token_params,omitempty" yaml:"extra_token_params"`
}

// HasClientCredentials reports whether both client id and secret are present.
func (c *ProviderConfig) HasClientCredentials() bool {
	return c != nil && c.ClientID != "" && c.ClientSecret != ""
}

// IsConfigured reports whether the provider can run a full authorization round trip.
func (c *ProviderConfig) IsConfigured() bool {
	return c.HasClientCredentials() && c.AuthURL != "" && c.TokenURL != "" && c.RedirectURL != ""
}
