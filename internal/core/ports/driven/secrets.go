package driven

// SecretSealer seals token strings into serialized envelopes for storage and
// opens them again. Implementations fail closed on any tampering.
type SecretSealer interface {
	// SealString encrypts plaintext and returns the serialized envelope.
	SealString(plaintext string) (string, error)

	// OpenString deserializes and decrypts an envelope produced by SealString.
	OpenString(serialized string) (string, error)
}
