package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
)

// StateSigner signs and verifies the OAuth state carried through the
// provider redirect, replacing server-side flow state.
//
// Not to be confused with the same-origin CSRF cookie applied by the general
// routing layer: that mechanism protects form posts, this one binds a
// callback to the authorization request that produced it.
type StateSigner interface {
	// Sign returns "<base64url payload>.<base64url mac>".
	Sign(payload domain.StatePayload) (string, error)

	// Verify returns the payload and true only if the token is well formed,
	// authentic and has the exact expected shape. Every failure looks the same.
	// Expiry is not checked here.
	Verify(token string) (*domain.StatePayload, bool)
}

// ReplayGuard makes a verified state token single-use.
type ReplayGuard interface {
	// Consume records the token as used for ttl.
	// Returns false if the token was already consumed.
	Consume(ctx context.Context, token string, ttl time.Duration) (bool, error)
}
