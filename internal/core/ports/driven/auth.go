package driven

import "github.com/custodia-labs/agency-connect/internal/core/domain"

// AuthAdapter handles session token cryptographic operations.
// Tokens are issued by the main application; this service only validates them.
type AuthAdapter interface {
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}
