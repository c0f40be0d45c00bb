// Package oauthstate signs and verifies the state parameter carried through
// the provider redirect.
//
// This is the OAuth state token only. It is unrelated to the same-origin CSRF
// cookie the main application applies to form submissions; the two
// must never share a key or be substituted for one another.
package oauthstate

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
)

// Ensure Signer implements StateSigner
var _ driven.StateSigner = (*Signer)(nil)

const separator = "."

// MinKeySize is the shortest HMAC key accepted.
const MinKeySize = 32

// ErrWeakKey is returned when the signing key is shorter than MinKeySize.
var ErrWeakKey = errors.New("state signing key must be at least 32 bytes")

var encoding = base64.RawURLEncoding.Strict()

// Signer produces payload.mac tokens with HMAC-SHA256.
type Signer struct {
	key []byte
}

// NewSigner creates a signer with a server-held key.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) < MinKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrWeakKey, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}, nil
}

// Sign encodes the payload and appends its MAC.
func (s *Signer) Sign(payload domain.StatePayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal state payload: %w", err)
	}
	encoded := encoding.EncodeToString(raw)
	return encoded + separator + encoding.EncodeToString(s.mac(encoded)), nil
}

// Verify checks the MAC before touching the payload bytes, then checks the
// payload shape. Every failure returns (nil, false) with no further detail.
// Expiry is left to the caller.
func (s *Signer) Verify(token string) (*domain.StatePayload, bool) {
	if strings.Count(token, separator) != 1 {
		return nil, false
	}
	encodedPayload, encodedMAC, _ := strings.Cut(token, separator)
	if encodedPayload == "" || encodedMAC == "" {
		return nil, false
	}

	mac, err := encoding.DecodeString(encodedMAC)
	if err != nil {
		return nil, false
	}
	if !hmac.Equal(mac, s.mac(encodedPayload)) {
		return nil, false
	}

	raw, err := encoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, false
	}
	payload, err := decodePayload(raw)
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (s *Signer) mac(encodedPayload string) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(encodedPayload))
	return h.Sum(nil)
}

// decodePayload requires exactly integrationId, provider and issuedAt with
// the right types.
func decodePayload(raw []byte) (*domain.StatePayload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if err := dec.Decode(new(json.RawMessage)); err != io.EOF {
		return nil, errors.New("trailing data")
	}
	if len(fields) != 3 {
		return nil, errors.New("unexpected field set")
	}

	integrationID, ok := fields["integrationId"].(string)
	if !ok {
		return nil, errors.New("integrationId")
	}
	if _, err := uuid.Parse(integrationID); err != nil {
		return nil, err
	}

	rawProvider, ok := fields["provider"].(string)
	if !ok {
		return nil, errors.New("provider")
	}
	provider := domain.ProviderType(rawProvider)
	if !provider.IsKnown() {
		return nil, domain.ErrUnknownProvider
	}

	number, ok := fields["issuedAt"].(json.Number)
	if !ok {
		return nil, errors.New("issuedAt")
	}
	issuedAt, err := number.Int64()
	if err != nil || issuedAt <= 0 {
		return nil, errors.New("issuedAt")
	}

	return &domain.StatePayload{
		IntegrationID: integrationID,
		Provider:      provider,
		IssuedAt:      issuedAt,
	}, nil
}
