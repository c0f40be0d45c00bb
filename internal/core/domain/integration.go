package domain

import (
	"fmt"
	"strings"
	"time"
)

// Integration is the tenant-scoped record of one provider connection.
// There is at most one per (TenantID, Provider).
//
// Lifecycle: created disconnected by BeginAuthorization, becomes connected on a
// successful callback, may be re-authorized (tokens replaced, ID unchanged).
type Integration struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenant_id"`
	Provider    ProviderType `json:"provider"`
	IsConnected bool         `json:"is_connected"`

	// Serialized sealed-secret envelopes, never the raw token
	AccessTokenSealed  string `json:"-"`
	RefreshTokenSealed string `json:"-"`

	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`

	// LastSyncAt is advisory; written here only at connection time
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`

	// Config is free-form, non-sensitive metadata (granted scopes, manual markers)
	Config map[string]any `json:"config,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IntegrationSummary is a safe view without sealed tokens for listing.
type IntegrationSummary struct {
	ID             string         `json:"id"`
	Provider       ProviderType   `json:"provider"`
	IsConnected    bool           `json:"is_connected"`
	TokenExpiresAt *time.Time     `json:"token_expires_at,omitempty"`
	LastSyncAt     *time.Time     `json:"last_sync_at,omitempty"`
	Config         map[string]any `json:"config,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewIntegration returns a disconnected record.
func NewIntegration(id, tenantID string, provider ProviderType, now time.Time) *Integration {
	return &Integration{
		ID:        id,
		TenantID:  tenantID,
		Provider:  provider,
		Config:    map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ToSummary converts Integration to IntegrationSummary.
func (i *Integration) ToSummary() *IntegrationSummary {
	return &IntegrationSummary{
		ID:             i.ID,
		Provider:       i.Provider,
		IsConnected:    i.IsConnected,
		TokenExpiresAt: i.TokenExpiresAt,
		LastSyncAt:     i.LastSyncAt,
		Config:         i.Config,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

// Validate checks the record invariants.
func (i *Integration) Validate() error {
	if i.ID == "" || i.TenantID == "" {
		return fmt.Errorf("%w: integration id and tenant id are required", ErrInvalidInput)
	}
	if !i.Provider.IsKnown() {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, i.Provider)
	}
	if i.IsConnected && i.AccessTokenSealed == "" {
		return fmt.Errorf("%w: connected integration without sealed access token", ErrInvalidInput)
	}
	return nil
}

// ApplyConnection transitions the record to connected with the given tokens.
func (i *Integration) ApplyConnection(conn *Connection) {
	i.IsConnected = true
	i.AccessTokenSealed = conn.AccessTokenSealed
	i.RefreshTokenSealed = conn.RefreshTokenSealed
	i.TokenExpiresAt = conn.TokenExpiresAt
	at := conn.ConnectedAt
	i.LastSyncAt = &at
	i.UpdatedAt = conn.ConnectedAt
	if len(conn.Scopes) > 0 {
		if i.Config == nil {
			i.Config = map[string]any{}
		}
		i.Config[ConfigKeyScopes] = conn.Scopes
	}
}

// ApplyDisconnect transitions the record back to disconnected and drops its tokens.
func (i *Integration) ApplyDisconnect(now time.Time) {
	i.IsConnected = false
	i.AccessTokenSealed = ""
	i.RefreshTokenSealed = ""
	i.TokenExpiresAt = nil
	i.UpdatedAt = now
}

// NeedsRefresh returns true if tokens expire within 5 minutes.
// Refreshing is left to downstream consumers.
func (i *Integration) NeedsRefresh(now time.Time) bool {
	if i.TokenExpiresAt == nil {
		return false
	}
	return now.Add(5 * time.Minute).After(*i.TokenExpiresAt)
}

// IsExpired returns true if the access token has expired.
func (i *Integration) IsExpired(now time.Time) bool {
	if i.TokenExpiresAt == nil {
		return false
	}
	return now.After(*i.TokenExpiresAt)
}

// ConfigKeyScopes is the Config key holding the granted scope list
const ConfigKeyScopes = "scopes"

// Connection is the write applied by a successful callback. The update is keyed
// by integration ID only and never reads prior token values, so concurrent
// callbacks converge on the last write.
type Connection struct {
	AccessTokenSealed  string
	RefreshTokenSealed string
	TokenExpiresAt     *time.Time
	ConnectedAt        time.Time
	Scopes             []string
}

// Validate enforces the connected-record invariant before it reaches storage.
func (c *Connection) Validate() error {
	if c == nil || c.AccessTokenSealed == "" {
		return fmt.Errorf("%w: sealed access token is required", ErrInvalidInput)
	}
	return nil
}

// SplitScopes splits a space or comma separated scope string.
func SplitScopes(scope string) []string {
	fields := strings.FieldsFunc(scope, func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Credentials are the opened tokens handed to downstream consumers.
type Credentials struct {
	IntegrationID  string
	Provider       ProviderType
	AccessToken    Secret
	RefreshToken   Secret
	TokenExpiresAt *time.Time
}
