package config

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/agency-connect/internal/adapters/driven/secrets"
	"github.com/custodia-labs/agency-connect/internal/core/domain"
)

// Keys are the resolved 32-byte signing and encryption keys
type Keys struct {
	Signing    []byte
	Encryption []byte

	// Ephemeral is set when at least one key was generated for this process.
	// State tokens or stored tokens will not survive a restart.
	Ephemeral bool
}

// ResolveKeys turns the configured key material into usable keys.
//
// In strict production missing keys are fatal. Elsewhere a random key is
// generated for each missing one and the readiness warnings say so.
func (c *Config) ResolveKeys() (*Keys, secrets.Readiness, error) {
	readiness := secrets.ValidateConfig(c.Keys)
	if !readiness.Ready() && c.IsStrictProduction() {
		return nil, readiness, fmt.Errorf("%w: %w", domain.ErrMisconfigured, ErrStrictProduction)
	}

	keys := &Keys{}
	var err error

	if keys.Signing, err = resolveKey(c.Keys.SigningKey, secrets.PurposeSigning, readiness.SigningKeyPresent); err != nil {
		return nil, readiness, fmt.Errorf("OAUTH_STATE_SECRET: %w", err)
	}
	if keys.Encryption, err = resolveKey(c.Keys.EncryptionKey, secrets.PurposeEncryption, readiness.EncryptionKeyPresent); err != nil {
		return nil, readiness, fmt.Errorf("TOKEN_ENCRYPTION_KEY: %w", err)
	}
	keys.Ephemeral = !readiness.Ready()

	// Same key in two encodings slips past the textual comparison.
	if readiness.Ready() && secrets.EqualKeys(keys.Signing, keys.Encryption) && !hasIdenticalWarning(readiness) {
		readiness.Warnings = append(readiness.Warnings, "OAUTH_STATE_SECRET and TOKEN_ENCRYPTION_KEY decode to the same key; use independent keys")
	}

	return keys, readiness, nil
}

func resolveKey(raw, purpose string, present bool) ([]byte, error) {
	if !present {
		return secrets.GenerateKey()
	}
	return secrets.ParseKey(raw, purpose)
}

func hasIdenticalWarning(r secrets.Readiness) bool {
	for _, w := range r.Warnings {
		if strings.Contains(w, "identical") {
			return true
		}
	}
	return false
}
