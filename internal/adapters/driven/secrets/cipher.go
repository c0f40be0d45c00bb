package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
)

// Ensure TokenCipher implements SecretSealer
var _ driven.SecretSealer = (*TokenCipher)(nil)

const (
	// KeySize is the required key size for AES-256
	KeySize = 32

	// nonceSize is the AES-GCM nonce size (12 bytes is standard)
	nonceSize = 12

	// tagSize is the GCM authentication tag size
	tagSize = 16
)

// ErrInvalidKeySize is returned when the encryption key is not 32 bytes.
var ErrInvalidKeySize = errors.New("encryption key must be 32 bytes")

// SealedSecret is the AES-GCM envelope for one secret. The authentication tag
// is kept apart from the ciphertext so each field can be stored as text.
type SealedSecret struct {
	IV         []byte
	Ciphertext []byte
	AuthTag    []byte
}

// envelope is the wire form: exactly three base64 string fields.
type envelope struct {
	IV   string `json:"iv"`
	Data string `json:"data"`
	Tag  string `json:"tag"`
}

var envelopeFields = []string{"iv", "data", "tag"}

// TokenCipher handles AES-256-GCM encryption/decryption of token strings.
type TokenCipher struct {
	gcm cipher.AEAD
}

// NewTokenCipher creates a new cipher with the given 32-byte key.
func NewTokenCipher(key []byte) (*TokenCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &TokenCipher{gcm: gcm}, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (c *TokenCipher) Seal(plaintext string) (*SealedSecret, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	split := len(sealed) - tagSize

	return &SealedSecret{
		IV:         nonce,
		Ciphertext: sealed[:split],
		AuthTag:    sealed[split:],
	}, nil
}

// Open decrypts an envelope. Any length mismatch, tag mismatch or wrong key
// yields domain.ErrDecryptionFailed and no partial output.
func (c *TokenCipher) Open(secret *SealedSecret) (string, error) {
	if secret == nil || len(secret.IV) != nonceSize || len(secret.AuthTag) != tagSize {
		return "", domain.ErrDecryptionFailed
	}

	sealed := make([]byte, 0, len(secret.Ciphertext)+tagSize)
	sealed = append(sealed, secret.Ciphertext...)
	sealed = append(sealed, secret.AuthTag...)

	plaintext, err := c.gcm.Open(nil, secret.IV, sealed, nil)
	if err != nil {
		return "", domain.ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// SealString seals plaintext and serializes the envelope.
func (c *TokenCipher) SealString(plaintext string) (string, error) {
	secret, err := c.Seal(plaintext)
	if err != nil {
		return "", err
	}
	return Serialize(secret)
}

// OpenString deserializes and opens an envelope.
func (c *TokenCipher) OpenString(serialized string) (string, error) {
	secret, err := Deserialize(serialized)
	if err != nil {
		return "", err
	}
	return c.Open(secret)
}

// Serialize encodes the envelope as {"iv","data","tag"} with base64 fields.
func Serialize(secret *SealedSecret) (string, error) {
	if secret == nil {
		return "", domain.ErrMalformedEnvelope
	}
	data, err := json.Marshal(envelope{
		IV:   base64.StdEncoding.EncodeToString(secret.IV),
		Data: base64.StdEncoding.EncodeToString(secret.Ciphertext),
		Tag:  base64.StdEncoding.EncodeToString(secret.AuthTag),
	})
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return string(data), nil
}

// Deserialize parses a serialized envelope. The object must hold exactly the
// iv, data and tag fields, each a base64 string (only data may be empty);
// anything else, including a partially overwritten envelope, is
// domain.ErrMalformedEnvelope.
func Deserialize(serialized string) (*SealedSecret, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(serialized), &raw); err != nil || raw == nil {
		return nil, domain.ErrMalformedEnvelope
	}
	if len(raw) != len(envelopeFields) {
		return nil, domain.ErrMalformedEnvelope
	}

	decoded := make(map[string][]byte, len(envelopeFields))
	for _, field := range envelopeFields {
		value, ok := raw[field].(string)
		if !ok || (value == "" && field != "data") {
			return nil, domain.ErrMalformedEnvelope
		}
		b, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, domain.ErrMalformedEnvelope
		}
		decoded[field] = b
	}

	return &SealedSecret{
		IV:         decoded["iv"],
		Ciphertext: decoded["data"],
		AuthTag:    decoded["tag"],
	}, nil
}
