package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driving"
)

// Ensure oauthService implements OAuthService
var _ driving.OAuthService = (*oauthService)(nil)

// Authorization metric results
const (
	resultStarted       = "started"
	resultReauthorized  = "reauthorized"
	resultUnknown       = "unknown_provider"
	resultMisconfigured = "misconfigured"
	resultConflict      = "conflict"
	resultNotFound      = "not_found"
	resultError         = "error"
)

// OAuthServiceConfig holds configuration for the OAuth service.
type OAuthServiceConfig struct {
	// IntegrationStore persists integration records.
	IntegrationStore driven.IntegrationStore

	// Providers is the immutable provider table.
	Providers driven.ProviderRegistry

	// Exchanger trades codes for tokens.
	Exchanger driven.TokenExchanger

	// Signer signs and verifies the OAuth state token.
	Signer driven.StateSigner

	// Sealer encrypts tokens before they reach the store.
	Sealer driven.SecretSealer

	// ReplayGuard is optional. When nil the flow stays stateless.
	ReplayGuard driven.ReplayGuard

	// Metrics is optional.
	Metrics driven.OAuthMetrics

	Logger *slog.Logger

	// StateTTL defaults to domain.StateTokenTTL.
	StateTTL time.Duration

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// oauthService implements the OAuthService interface.
type oauthService struct {
	store       driven.IntegrationStore
	providers   driven.ProviderRegistry
	exchanger   driven.TokenExchanger
	signer      driven.StateSigner
	sealer      driven.SecretSealer
	replayGuard driven.ReplayGuard
	metrics     driven.OAuthMetrics
	logger      *slog.Logger
	stateTTL    time.Duration
	now         func() time.Time
	newID       func() string
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(cfg OAuthServiceConfig) driving.OAuthService {
	s := &oauthService{
		store:       cfg.IntegrationStore,
		providers:   cfg.Providers,
		exchanger:   cfg.Exchanger,
		signer:      cfg.Signer,
		sealer:      cfg.Sealer,
		replayGuard: cfg.ReplayGuard,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		stateTTL:    cfg.StateTTL,
		now:         cfg.Now,
		newID:       cfg.NewID,
	}
	if s.metrics == nil {
		s.metrics = driven.NopMetrics{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.stateTTL <= 0 {
		s.stateTTL = domain.StateTokenTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// BeginAuthorization creates the disconnected record and the signed state.
// Provider configuration is checked before anything is written, so a
// misconfigured provider never leaves a record behind.
func (s *oauthService) BeginAuthorization(ctx context.Context, req driving.AuthorizeRequest) (*driving.AuthorizeResponse, error) {
	// Runs before the Conflict lookup: a misconfigured provider reports
	// ErrMisconfigured even when the tenant already has a record.
	cfg, err := s.providerConfig(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetByTenantProvider(ctx, req.TenantID, req.Provider)
	switch {
	case err == nil && existing != nil:
		s.metrics.AuthorizationStarted(req.Provider, resultConflict)
		return nil, fmt.Errorf("%w: integration for %s", domain.ErrAlreadyExists, req.Provider)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		s.metrics.AuthorizationStarted(req.Provider, resultError)
		return nil, fmt.Errorf("%w: lookup integration: %w", domain.ErrPersistenceFailed, err)
	}

	now := s.now()
	integration := domain.NewIntegration(s.newID(), req.TenantID, req.Provider, now)
	if err := integration.Validate(); err != nil {
		s.metrics.AuthorizationStarted(req.Provider, resultError)
		return nil, err
	}
	if err := s.store.Create(ctx, integration); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost a race with a concurrent Begin for the same pair.
			s.metrics.AuthorizationStarted(req.Provider, resultConflict)
			return nil, err
		}
		s.metrics.AuthorizationStarted(req.Provider, resultError)
		return nil, fmt.Errorf("%w: create integration: %w", domain.ErrPersistenceFailed, err)
	}

	resp, err := s.authorizationResponse(cfg, integration.ID, now)
	if err != nil {
		s.metrics.AuthorizationStarted(req.Provider, resultError)
		return nil, err
	}

	s.logger.Info("oauth authorization started",
		"provider", req.Provider,
		"integration_id", integration.ID,
	)
	s.metrics.AuthorizationStarted(req.Provider, resultStarted)
	return resp, nil
}

// Reauthorize signs a fresh state for the tenant's existing record.
func (s *oauthService) Reauthorize(ctx context.Context, req driving.AuthorizeRequest) (*driving.AuthorizeResponse, error) {
	cfg, err := s.providerConfig(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetByTenantProvider(ctx, req.TenantID, req.Provider)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.AuthorizationStarted(req.Provider, resultNotFound)
			return nil, err
		}
		s.metrics.AuthorizationStarted(req.Provider, resultError)
		return nil, fmt.Errorf("%w: lookup integration: %w", domain.ErrPersistenceFailed, err)
	}

	resp, err := s.authorizationResponse(cfg, existing.ID, s.now())
	if err != nil {
		s.metrics.AuthorizationStarted(req.Provider, resultError)
		return nil, err
	}

	s.logger.Info("oauth reauthorization started",
		"provider", req.Provider,
		"integration_id", existing.ID,
	)
	s.metrics.AuthorizationStarted(req.Provider, resultReauthorized)
	return resp, nil
}

// providerConfig validates the request and returns a fully configured provider.
func (s *oauthService) providerConfig(req driving.AuthorizeRequest) (*domain.ProviderConfig, error) {
	if !req.Provider.IsKnown() {
		s.metrics.AuthorizationStarted("", resultUnknown)
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, req.Provider)
	}
	if req.TenantID == "" {
		s.metrics.AuthorizationStarted(req.Provider, resultError)
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrInvalidInput)
	}

	cfg, ok := s.providers.Lookup(req.Provider)
	if !ok || !cfg.IsConfigured() {
		s.logger.Error("oauth provider is not configured", "provider", req.Provider)
		s.metrics.AuthorizationStarted(req.Provider, resultMisconfigured)
		return nil, fmt.Errorf("%w: provider %s has no client configuration", domain.ErrMisconfigured, req.Provider)
	}
	return cfg, nil
}

func (s *oauthService) authorizationResponse(cfg *domain.ProviderConfig, integrationID string, now time.Time) (*driving.AuthorizeResponse, error) {
	state, err := s.signer.Sign(domain.StatePayload{
		IntegrationID: integrationID,
		Provider:      cfg.Provider,
		IssuedAt:      now.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("sign state: %w", err)
	}

	authURL, err := s.providers.AuthorizationURL(cfg, state)
	if err != nil {
		return nil, fmt.Errorf("build authorization url: %w", err)
	}

	return &driving.AuthorizeResponse{
		AuthorizationURL: authURL,
		IntegrationID:    integrationID,
		ExpiresAt:        now.Add(s.stateTTL).UTC().Format(time.RFC3339),
	}, nil
}

// HandleCallback runs the callback state machine. The first failing step
// decides the outcome.
func (s *oauthService) HandleCallback(ctx context.Context, req driving.CallbackRequest) *driving.CallbackResult {
	result := &driving.CallbackResult{}

	// 1. Provider reported an error. Its text is not reflected anywhere.
	if req.Error != "" {
		return s.finish(result, domain.OutcomeOAuthError, nil)
	}

	// 2. Required parameters
	if req.Code == "" || req.State == "" {
		return s.finish(result, domain.OutcomeMissingParams, nil)
	}

	// 3. Signature and shape
	payload, ok := s.signer.Verify(req.State)
	if !ok {
		return s.finish(result, domain.OutcomeInvalidState, domain.ErrInvalidState)
	}
	result.Provider = payload.Provider
	result.IntegrationID = payload.IntegrationID

	// 4. Window
	if payload.IsExpired(s.now(), s.stateTTL) {
		return s.finish(result, domain.OutcomeStateExpired, domain.ErrStateExpired)
	}

	// Single use, when a replay guard is configured. Backend errors fail closed.
	if s.replayGuard != nil {
		fresh, err := s.replayGuard.Consume(ctx, req.State, s.stateTTL)
		if err != nil {
			return s.finish(result, domain.OutcomeInvalidState, fmt.Errorf("%w: replay guard: %v", domain.ErrInvalidState, err))
		}
		if !fresh {
			return s.finish(result, domain.OutcomeInvalidState, fmt.Errorf("%w: state already used", domain.ErrInvalidState))
		}
	}

	// 5. Client credentials; never attempt the call without them
	cfg, ok := s.providers.Lookup(payload.Provider)
	if !ok || !cfg.HasClientCredentials() {
		return s.finish(result, domain.OutcomeTokenExchangeFailed, domain.ErrMisconfigured)
	}

	// 6-7. Exchange and normalize
	started := time.Now()
	tokens, err := s.exchanger.Exchange(ctx, cfg, req.Code)
	s.metrics.TokenExchangeObserved(payload.Provider, time.Since(started))
	if err != nil {
		return s.finish(result, domain.OutcomeTokenExchangeFailed, err)
	}

	// 8. Seal and persist
	conn, err := s.seal(tokens, s.now())
	if err != nil {
		return s.finish(result, domain.OutcomeUpdateFailed, err)
	}
	if err := s.store.MarkConnected(ctx, payload.IntegrationID, conn); err != nil {
		return s.finish(result, domain.OutcomeUpdateFailed, fmt.Errorf("%w: %w", domain.ErrPersistenceFailed, err))
	}

	// 9. Done
	return s.finish(result, domain.OutcomeSuccess, nil)
}

// seal encrypts the token set into a connection update.
func (s *oauthService) seal(tokens *domain.TokenSet, now time.Time) (*domain.Connection, error) {
	access, err := s.sealer.SealString(tokens.AccessToken.Reveal())
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}

	conn := &domain.Connection{
		AccessTokenSealed: access,
		ConnectedAt:       now,
		Scopes:            domain.SplitScopes(tokens.Scope),
	}

	if !tokens.RefreshToken.IsEmpty() {
		refresh, err := s.sealer.SealString(tokens.RefreshToken.Reveal())
		if err != nil {
			return nil, fmt.Errorf("seal refresh token: %w", err)
		}
		conn.RefreshTokenSealed = refresh
	}

	conn.TokenExpiresAt = tokens.ExpiresAt(now)

	return conn, conn.Validate()
}

// finish logs and counts the outcome. Only outcome codes and identifiers are
// logged at info or above; the underlying error goes to debug.
func (s *oauthService) finish(result *driving.CallbackResult, outcome domain.CallbackOutcome, err error) *driving.CallbackResult {
	result.Outcome = outcome

	attrs := []any{
		"provider", result.Provider,
		"integration_id", result.IntegrationID,
		"outcome", outcome,
	}
	switch {
	case outcome.IsSecurityEvent():
		s.logger.Warn("oauth state rejected", append(attrs, "event", "oauth_state_rejected")...)
	case outcome == domain.OutcomeSuccess:
		s.logger.Info("oauth callback completed", attrs...)
	default:
		s.logger.Info("oauth callback failed", attrs...)
	}
	if err != nil {
		s.logger.Debug("oauth callback detail", append(attrs, "error", err)...)
	}

	s.metrics.CallbackCompleted(result.Provider, outcome)
	return result
}
