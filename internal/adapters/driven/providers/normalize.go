package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
)

var (
	// errRejected means the provider answered 2xx but signalled an error in the body.
	errRejected = errors.New("provider rejected the code exchange")

	// errNoAccessToken means the body parsed but carried no usable access token.
	errNoAccessToken = errors.New("token response has no access token")
)

// normalizeFunc turns a raw 2xx token response into a TokenSet.
type normalizeFunc func(body []byte) (*domain.TokenSet, error)

var normalizers = map[ResponseShape]normalizeFunc{
	ShapeStandard: normalizeStandard,
	ShapeSlack:    normalizeSlack,
}

func normalizerFor(provider domain.ProviderType) normalizeFunc {
	if fn, ok := normalizers[ShapeFor(provider)]; ok {
		return fn
	}
	return normalizeStandard
}

// seconds accepts a JSON number or a numeric string. Lifetimes beyond
// domain.MaxTokenLifetime are clamped to it.
type seconds int64

func (s *seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if raw == "" {
		*s = 0
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if errors.Is(err, strconv.ErrRange) && n > 0 {
		err = nil // +Inf, clamped below
	}
	if err != nil || math.IsNaN(n) || n < 0 {
		return errors.New("invalid expires_in")
	}
	if n >= float64(domain.MaxTokenLifetimeSeconds) {
		*s = seconds(domain.MaxTokenLifetimeSeconds)
		return nil
	}
	*s = seconds(n)
	return nil
}

// tokenFields is the RFC 6749 field set shared by every shape.
type tokenFields struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    seconds `json:"expires_in"`
	Scope        string  `json:"scope"`
}

func (f *tokenFields) toTokenSet() (*domain.TokenSet, error) {
	if strings.TrimSpace(f.AccessToken) == "" {
		return nil, errNoAccessToken
	}
	return &domain.TokenSet{
		AccessToken:      domain.NewSecret(f.AccessToken),
		RefreshToken:     domain.NewSecret(f.RefreshToken),
		ExpiresInSeconds: int64(f.ExpiresIn),
		Scope:            f.Scope,
	}, nil
}

// hasError reports whether a raw error field carries anything. Providers use
// a string (RFC 6749) or an object (Graph API).
func hasError(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", `""`, "{}", "false":
		return false
	}
	return true
}

func normalizeStandard(body []byte) (*domain.TokenSet, error) {
	var resp struct {
		tokenFields
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if hasError(resp.Error) {
		return nil, errRejected
	}
	return resp.toTokenSet()
}

// normalizeSlack prefers the user token under authed_user and falls back to
// the top-level bot token.
func normalizeSlack(body []byte) (*domain.TokenSet, error) {
	var resp struct {
		tokenFields
		OK         *bool           `json:"ok"`
		Error      json.RawMessage `json:"error"`
		AuthedUser *tokenFields    `json:"authed_user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if (resp.OK != nil && !*resp.OK) || hasError(resp.Error) {
		return nil, errRejected
	}
	if resp.AuthedUser != nil && strings.TrimSpace(resp.AuthedUser.AccessToken) != "" {
		return resp.AuthedUser.toTokenSet()
	}
	return resp.tokenFields.toTokenSet()
}
