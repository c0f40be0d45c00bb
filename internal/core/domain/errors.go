package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists.
	// For integrations this is the Conflict case on (tenant, provider).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnknownProvider indicates the provider is not in the known set
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrMisconfigured indicates missing provider or key configuration.
	// Operator-facing; clients only ever see a generic message.
	ErrMisconfigured = errors.New("service misconfigured")

	// ErrInvalidState indicates a forged, malformed or replayed OAuth state token
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrStateExpired indicates a verified OAuth state token outside its window
	ErrStateExpired = errors.New("oauth state expired")

	// ErrTokenExchangeFailed indicates the provider token exchange failed
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrTokenExchangeTimeout indicates the provider token exchange timed out
	ErrTokenExchangeTimeout = errors.New("token exchange timed out")

	// ErrPersistenceFailed indicates the integration record could not be written
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrDecryptionFailed indicates a sealed secret could not be opened
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrMalformedEnvelope indicates a serialized sealed secret has the wrong shape
	ErrMalformedEnvelope = errors.New("malformed sealed secret envelope")
)
