package domain

// Role represents a user's role within an agency
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// AuthContext contains authenticated user info for request context.
// Every integration operation is scoped by TenantID.
type AuthContext struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     Role   `json:"role"`
}

// CanManageIntegrations checks if the user may connect or disconnect providers
func (a *AuthContext) CanManageIntegrations() bool {
	return a.Role == RoleOwner || a.Role == RoleAdmin
}

// TokenClaims represents the session JWT payload issued by the main application
type TokenClaims struct {
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// ToAuthContext converts claims into a request auth context
func (c *TokenClaims) ToAuthContext() *AuthContext {
	return &AuthContext{
		UserID:   c.UserID,
		TenantID: c.TenantID,
		Role:     c.Role,
	}
}
