package secrets

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// Key purposes, used as HKDF info so the two keys never coincide even when
// stretched from the same material.
const (
	PurposeEncryption = "agency-connect token cipher v1"
	PurposeSigning    = "agency-connect oauth state v1"
)

// KeyMaterial is the raw, externally supplied key configuration.
type KeyMaterial struct {
	SigningKey    string
	EncryptionKey string
}

// Readiness is the result of the startup configuration probe.
type Readiness struct {
	SigningKeyPresent    bool     `json:"signing_key_present"`
	EncryptionKeyPresent bool     `json:"encryption_key_present"`
	Warnings             []string `json:"warnings,omitempty"`
}

// Ready reports whether both keys are present.
func (r Readiness) Ready() bool {
	return r.SigningKeyPresent && r.EncryptionKeyPresent
}

// ValidateConfig inspects key material without side effects and never fails,
// so the caller decides whether to warn or refuse to start.
func ValidateConfig(keys KeyMaterial) Readiness {
	r := Readiness{
		SigningKeyPresent:    strings.TrimSpace(keys.SigningKey) != "",
		EncryptionKeyPresent: strings.TrimSpace(keys.EncryptionKey) != "",
	}

	if !r.SigningKeyPresent {
		r.Warnings = append(r.Warnings, "OAUTH_STATE_SECRET is not set; OAuth state tokens cannot be verified across restarts")
	} else if _, exact := decodeExactKey(keys.SigningKey); !exact {
		r.Warnings = append(r.Warnings, "OAUTH_STATE_SECRET is not a 32-byte hex or base64 key; it will be stretched with HKDF")
	}

	if !r.EncryptionKeyPresent {
		r.Warnings = append(r.Warnings, "TOKEN_ENCRYPTION_KEY is not set; stored tokens will be unreadable after restart")
	} else if _, exact := decodeExactKey(keys.EncryptionKey); !exact {
		r.Warnings = append(r.Warnings, "TOKEN_ENCRYPTION_KEY is not a 32-byte hex or base64 key; it will be stretched with HKDF")
	}

	if r.SigningKeyPresent && r.EncryptionKeyPresent &&
		strings.TrimSpace(keys.SigningKey) == strings.TrimSpace(keys.EncryptionKey) {
		r.Warnings = append(r.Warnings, "OAUTH_STATE_SECRET and TOKEN_ENCRYPTION_KEY are identical; use independent keys")
	}

	return r
}

// ParseKey turns configured key material into a 32-byte key. Exact 32-byte
// keys (64 hex chars, or standard/URL base64) are used as-is; any other
// non-empty value is stretched with HKDF-SHA256 bound to purpose.
func ParseKey(raw, purpose string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("key for %q is empty", purpose)
	}
	if key, ok := decodeExactKey(raw); ok {
		return key, nil
	}

	key := make([]byte, KeySize)
	reader := hkdf.New(sha256.New, []byte(raw), nil, []byte(purpose))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// GenerateKey returns a random 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// EqualKeys compares two keys.
func EqualKeys(a, b []byte) bool {
	return bytes.Equal(a, b)
}

func decodeExactKey(raw string) ([]byte, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) == hex.EncodedLen(KeySize) {
		if key, err := hex.DecodeString(raw); err == nil {
			return key, true
		}
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		if key, err := enc.DecodeString(raw); err == nil && len(key) == KeySize {
			return key, true
		}
	}
	return nil, false
}
