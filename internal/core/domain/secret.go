package domain

import (
	"log/slog"
	"time"
)

const redacted = "[REDACTED]"

// Secret wraps a sensitive string (access or refresh token) so it cannot leak
// through fmt, slog or JSON encoding. Use Reveal only when the raw value must
// be handed to the cipher or an outbound request.
type Secret struct {
	value string
}

// NewSecret wraps value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Reveal returns the raw value. Never log the result.
func (s Secret) Reveal() string {
	return s.value
}

// IsEmpty reports whether the wrapped value is empty.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}

// String implements fmt.Stringer.
func (s Secret) String() string {
	return redacted
}

// GoString implements fmt.GoStringer for %#v.
func (s Secret) GoString() string {
	return "domain.Secret{" + redacted + "}"
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// MarshalText implements encoding.TextMarshaler.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// MarshalJSON implements json.Marshaler.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// MaxTokenLifetime caps a provider-reported lifetime. Anything longer is
// treated as this long so expiry arithmetic stays in range.
const MaxTokenLifetime = 10 * 365 * 24 * time.Hour

// MaxTokenLifetimeSeconds is MaxTokenLifetime in whole seconds.
const MaxTokenLifetimeSeconds = int64(MaxTokenLifetime / time.Second)

// TokenSet is the provider-independent result of a code exchange.
type TokenSet struct {
	AccessToken  Secret
	RefreshToken Secret

	// ExpiresInSeconds is zero when the provider did not supply a lifetime
	ExpiresInSeconds int64

	// Scope is the granted scope string as returned by the provider
	Scope string
}

// ExpiresAt returns now plus the reported lifetime, capped at
// MaxTokenLifetime, or nil when the provider supplied none.
func (t *TokenSet) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresInSeconds <= 0 {
		return nil
	}
	lifetime := min(t.ExpiresInSeconds, MaxTokenLifetimeSeconds)
	at := now.Add(time.Duration(lifetime) * time.Second)
	return &at
}
