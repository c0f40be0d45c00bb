package domain

import (
	"net/url"
	"time"
)

// StateTokenTTL is the authorization round-trip window for a signed state.
const StateTokenTTL = 10 * time.Minute

// StatePayload is carried through the provider redirect inside a signed state
// token. It is never persisted.
type StatePayload struct {
	IntegrationID string       `json:"integrationId"`
	Provider      ProviderType `json:"provider"`
	IssuedAt      int64        `json:"issuedAt"` // Unix milliseconds
}

// IssuedAtTime returns IssuedAt as a time.Time.
func (p *StatePayload) IssuedAtTime() time.Time {
	return time.UnixMilli(p.IssuedAt)
}

// IsExpired reports whether now is more than ttl after issuance.
func (p *StatePayload) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.IssuedAtTime()) > ttl
}

// CallbackOutcome is the opaque code a callback resolves to. It is the only
// callback detail that is safe to log unconditionally or put in a redirect.
type CallbackOutcome string

const (
	OutcomeSuccess             CallbackOutcome = "success"
	OutcomeOAuthError          CallbackOutcome = "oauth_error"
	OutcomeMissingParams       CallbackOutcome = "missing_params"
	OutcomeInvalidState        CallbackOutcome = "invalid_state"
	OutcomeStateExpired        CallbackOutcome = "state_expired"
	OutcomeTokenExchangeFailed CallbackOutcome = "token_exchange_failed"
	OutcomeUpdateFailed        CallbackOutcome = "update_failed"
)

// IsSecurityEvent reports whether the outcome stems from a rejected state token.
func (o CallbackOutcome) IsSecurityEvent() bool {
	return o == OutcomeInvalidState || o == OutcomeStateExpired
}

// RedirectURL builds the user-facing settings redirect for an outcome:
// success=<provider> on success, error=<code> otherwise.
func RedirectURL(settingsURL string, outcome CallbackOutcome, provider ProviderType) string {
	u, err := url.Parse(settingsURL)
	if err != nil {
		u = &url.URL{Path: "/settings/integrations"}
	}
	q := u.Query()
	if outcome == OutcomeSuccess {
		q.Set("success", string(provider))
	} else {
		q.Set("error", string(outcome))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
