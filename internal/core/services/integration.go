package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driving"
)

// Ensure integrationService implements IntegrationService
var _ driving.IntegrationService = (*integrationService)(nil)

// IntegrationServiceConfig holds configuration for the integration service.
type IntegrationServiceConfig struct {
	IntegrationStore driven.IntegrationStore
	Sealer           driven.SecretSealer
	Logger           *slog.Logger
}

// integrationService implements the IntegrationService interface.
type integrationService struct {
	store  driven.IntegrationStore
	sealer driven.SecretSealer
	logger *slog.Logger
}

// NewIntegrationService creates a new integration service.
func NewIntegrationService(cfg IntegrationServiceConfig) driving.IntegrationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &integrationService{
		store:  cfg.IntegrationStore,
		sealer: cfg.Sealer,
		logger: logger,
	}
}

// Get returns the tenant's integration for a provider.
func (s *integrationService) Get(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.IntegrationSummary, error) {
	integration, err := s.lookup(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}
	return integration.ToSummary(), nil
}

// ListForTenant returns all of the tenant's integrations.
func (s *integrationService) ListForTenant(ctx context.Context, tenantID string) ([]*domain.IntegrationSummary, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrInvalidInput)
	}

	integrations, err := s.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}

	summaries := make([]*domain.IntegrationSummary, len(integrations))
	for i, integration := range integrations {
		summaries[i] = integration.ToSummary()
	}
	return summaries, nil
}

// MarkDisconnected clears the tokens of the tenant's integration.
func (s *integrationService) MarkDisconnected(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.IntegrationSummary, error) {
	integration, err := s.lookup(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}

	if err := s.store.MarkDisconnected(ctx, integration.ID); err != nil {
		return nil, fmt.Errorf("mark disconnected: %w", err)
	}

	updated, err := s.store.Get(ctx, integration.ID)
	if err != nil {
		return nil, fmt.Errorf("reload integration: %w", err)
	}

	s.logger.Info("integration disconnected",
		"provider", provider,
		"integration_id", integration.ID,
	)
	return updated.ToSummary(), nil
}

// Credentials opens the sealed tokens of a connected integration.
func (s *integrationService) Credentials(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.Credentials, error) {
	integration, err := s.lookup(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}
	if !integration.IsConnected {
		return nil, fmt.Errorf("%w: integration for %s is not connected", domain.ErrNotFound, provider)
	}

	access, err := s.sealer.OpenString(integration.AccessTokenSealed)
	if err != nil {
		s.logger.Warn("sealed access token could not be opened",
			"provider", provider,
			"integration_id", integration.ID,
		)
		return nil, fmt.Errorf("%w: access token", domain.ErrDecryptionFailed)
	}

	creds := &domain.Credentials{
		IntegrationID:  integration.ID,
		Provider:       integration.Provider,
		AccessToken:    domain.NewSecret(access),
		TokenExpiresAt: integration.TokenExpiresAt,
	}

	if integration.RefreshTokenSealed != "" {
		refresh, err := s.sealer.OpenString(integration.RefreshTokenSealed)
		if err != nil {
			s.logger.Warn("sealed refresh token could not be opened",
				"provider", provider,
				"integration_id", integration.ID,
			)
			return nil, fmt.Errorf("%w: refresh token", domain.ErrDecryptionFailed)
		}
		creds.RefreshToken = domain.NewSecret(refresh)
	}

	return creds, nil
}

func (s *integrationService) lookup(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.Integration, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrInvalidInput)
	}
	if !provider.IsKnown() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, provider)
	}
	integration, err := s.store.GetByTenantProvider(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}
	return integration, nil
}
