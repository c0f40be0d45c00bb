package driven

import (
	"context"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
)

// IntegrationStore persists integration records.
// Uniqueness on (tenant, provider) is enforced by the store itself.
type IntegrationStore interface {
	// Create inserts a new, disconnected integration.
	// Returns domain.ErrAlreadyExists if the tenant already has a record for the provider.
	Create(ctx context.Context, integration *domain.Integration) error

	// Get retrieves an integration by ID.
	// Returns domain.ErrNotFound if the integration doesn't exist.
	Get(ctx context.Context, id string) (*domain.Integration, error)

	// GetByTenantProvider retrieves the tenant's integration for a provider.
	// Returns domain.ErrNotFound if none exists.
	GetByTenantProvider(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.Integration, error)

	// ListByTenant retrieves all integrations for a tenant, oldest first.
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Integration, error)

	// MarkConnected overwrites tokens and flips the record to connected.
	// The write is keyed by ID and idempotent: the last writer wins.
	// Returns domain.ErrNotFound if the integration doesn't exist.
	MarkConnected(ctx context.Context, id string, conn *domain.Connection) error

	// MarkDisconnected clears tokens and flips the record to disconnected.
	// Returns domain.ErrNotFound if the integration doesn't exist.
	MarkDisconnected(ctx context.Context, id string) error

	// Ping checks if the store backend is reachable.
	Ping(ctx context.Context) error
}
