package driving

import (
	"context"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
)

// IntegrationService exposes integration records to the rest of the
// application. Every call is scoped by tenant.
type IntegrationService interface {
	// Get returns the tenant's integration for a provider, without secrets.
	// Returns domain.ErrNotFound if none exists.
	Get(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.IntegrationSummary, error)

	// ListForTenant returns all of the tenant's integrations, without secrets.
	ListForTenant(ctx context.Context, tenantID string) ([]*domain.IntegrationSummary, error)

	// MarkDisconnected drops the stored tokens and flips the record to
	// disconnected. The ID is kept.
	MarkDisconnected(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.IntegrationSummary, error)

	// Credentials opens the sealed tokens of a connected integration for
	// downstream consumers. Returns domain.ErrNotFound when there is no
	// connected record and domain.ErrDecryptionFailed on tampering.
	Credentials(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.Credentials, error)
}
