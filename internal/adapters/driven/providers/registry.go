package providers

import (
	"fmt"
	"maps"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
)

// Ensure Registry implements ProviderRegistry
var _ driven.ProviderRegistry = (*Registry)(nil)

// ResponseShape selects the token response normalizer for a provider.
type ResponseShape string

const (
	// ShapeStandard is the RFC 6749 token response.
	ShapeStandard ResponseShape = "standard"

	// ShapeSlack nests the user token under authed_user and signals
	// failure with ok=false.
	ShapeSlack ResponseShape = "slack"
)

// descriptor is one row of the provider table.
type descriptor struct {
	AuthURL          string
	TokenURL         string
	Scopes           []string
	ScopeSeparator   string
	Shape            ResponseShape
	ExtraAuthParams  map[string]string
	ExtraTokenParams map[string]string
}

var googleAuthParams = map[string]string{
	"access_type": "offline",
	"prompt":      "consent",
}

var googleTokenParams = map[string]string{
	"grant_type": "authorization_code",
}

// descriptors holds the defaults for every known provider. Adding a provider
// means adding a ProviderType and a row here.
var descriptors = map[domain.ProviderType]descriptor{
	domain.ProviderTypeSlack: {
		AuthURL:        "https://slack.com/oauth/v2/authorize",
		TokenURL:       "https://slack.com/api/oauth.v2.access",
		Scopes:         []string{"channels:read", "chat:write", "users:read"},
		ScopeSeparator: ",",
		Shape:          ShapeSlack,
	},
	domain.ProviderTypeGmail: {
		AuthURL:          "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:         "https://oauth2.googleapis.com/token",
		Scopes:           []string{"https://www.googleapis.com/auth/gmail.readonly"},
		ScopeSeparator:   " ",
		Shape:            ShapeStandard,
		ExtraAuthParams:  googleAuthParams,
		ExtraTokenParams: googleTokenParams,
	},
	domain.ProviderTypeGoogleAds: {
		AuthURL:          "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:         "https://oauth2.googleapis.com/token",
		Scopes:           []string{"https://www.googleapis.com/auth/adwords"},
		ScopeSeparator:   " ",
		Shape:            ShapeStandard,
		ExtraAuthParams:  googleAuthParams,
		ExtraTokenParams: googleTokenParams,
	},
	domain.ProviderTypeMetaAds: {
		AuthURL:        "https://www.facebook.com/v19.0/dialog/oauth",
		TokenURL:       "https://graph.facebook.com/v19.0/oauth/access_token",
		Scopes:         []string{"ads_read", "ads_management"},
		ScopeSeparator: " ",
		Shape:          ShapeStandard,
	},
}

// ShapeFor returns the response shape of a provider.
func ShapeFor(provider domain.ProviderType) ResponseShape {
	if d, ok := descriptors[provider]; ok && d.Shape != "" {
		return d.Shape
	}
	return ShapeStandard
}

// Config configures the registry. Overrides replace the table defaults field
// by field; empty fields keep the default.
type Config struct {
	// RedirectURL is the callback URL registered with every provider
	// unless an override names a different one.
	RedirectURL string

	Overrides map[domain.ProviderType]domain.ProviderConfig
}

// Registry is the immutable provider table built at startup.
type Registry struct {
	configs map[domain.ProviderType]*domain.ProviderConfig
}

// NewRegistry merges defaults with configured client credentials and overrides.
// Overrides for providers outside the known set are rejected.
func NewRegistry(cfg Config) (*Registry, error) {
	for provider := range cfg.Overrides {
		if !provider.IsKnown() {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, provider)
		}
	}

	configs := make(map[domain.ProviderType]*domain.ProviderConfig, len(descriptors))
	for provider, d := range descriptors {
		merged := &domain.ProviderConfig{
			Provider:         provider,
			AuthURL:          d.AuthURL,
			TokenURL:         d.TokenURL,
			Scopes:           append([]string(nil), d.Scopes...),
			RedirectURL:      cfg.RedirectURL,
			ExtraAuthParams:  maps.Clone(d.ExtraAuthParams),
			ExtraTokenParams: maps.Clone(d.ExtraTokenParams),
		}
		if override, ok := cfg.Overrides[provider]; ok {
			applyOverride(merged, override)
		}
		configs[provider] = merged
	}

	return &Registry{configs: configs}, nil
}

func applyOverride(dst *domain.ProviderConfig, o domain.ProviderConfig) {
	if o.AuthURL != "" {
		dst.AuthURL = o.AuthURL
	}
	if o.TokenURL != "" {
		dst.TokenURL = o.TokenURL
	}
	if o.ClientID != "" {
		dst.ClientID = o.ClientID
	}
	if o.ClientSecret != "" {
		dst.ClientSecret = o.ClientSecret
	}
	if len(o.Scopes) > 0 {
		dst.Scopes = append([]string(nil), o.Scopes...)
	}
	if o.RedirectURL != "" {
		dst.RedirectURL = o.RedirectURL
	}
	for k, v := range o.ExtraAuthParams {
		if dst.ExtraAuthParams == nil {
			dst.ExtraAuthParams = map[string]string{}
		}
		dst.ExtraAuthParams[k] = v
	}
	for k, v := range o.ExtraTokenParams {
		if dst.ExtraTokenParams == nil {
			dst.ExtraTokenParams = map[string]string{}
		}
		dst.ExtraTokenParams[k] = v
	}
}

// Lookup returns the configuration for a known provider.
func (r *Registry) Lookup(provider domain.ProviderType) (*domain.ProviderConfig, bool) {
	cfg, ok := r.configs[provider]
	return cfg, ok
}

// Configured returns the providers that can run a full round trip, in
// display order.
func (r *Registry) Configured() []domain.ProviderType {
	var out []domain.ProviderType
	for _, p := range domain.KnownProviders() {
		if cfg, ok := r.configs[p]; ok && cfg.IsConfigured() {
			out = append(out, p)
		}
	}
	return out
}

// AuthorizationURL composes the authorization URL with the signed state.
func (r *Registry) AuthorizationURL(cfg *domain.ProviderConfig, state string) (string, error) {
	if !cfg.IsConfigured() {
		return "", fmt.Errorf("%w: provider %q has no client configuration", domain.ErrMisconfigured, providerOf(cfg))
	}
	if u, err := url.Parse(cfg.AuthURL); err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: provider %q has an invalid authorization endpoint", domain.ErrMisconfigured, cfg.Provider)
	}

	oc := &oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: cfg.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}

	var opts []oauth2.AuthCodeOption
	sep := " "
	if d, ok := descriptors[cfg.Provider]; ok && d.ScopeSeparator != "" {
		sep = d.ScopeSeparator
	}
	if sep == " " {
		oc.Scopes = cfg.Scopes
	} else if len(cfg.Scopes) > 0 {
		opts = append(opts, oauth2.SetAuthURLParam("scope", strings.Join(cfg.Scopes, sep)))
	}
	for k, v := range cfg.ExtraAuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}

	return oc.AuthCodeURL(state, opts...), nil
}

func providerOf(cfg *domain.ProviderConfig) domain.ProviderType {
	if cfg == nil {
		return ""
	}
	return cfg.Provider
}
