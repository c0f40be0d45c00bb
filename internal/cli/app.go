package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/agency-connect/internal/adapters/driven/auth"
	"github.com/custodia-labs/agency-connect/internal/adapters/driven/oauthstate"
	"github.com/custodia-labs/agency-connect/internal/adapters/driven/postgres"
	"github.com/custodia-labs/agency-connect/internal/adapters/driven/providers"
	redisadapter "github.com/custodia-labs/agency-connect/internal/adapters/driven/redis"
	"github.com/custodia-labs/agency-connect/internal/adapters/driven/secrets"
	"github.com/custodia-labs/agency-connect/internal/adapters/driven/sqlite"
	httpadapter "github.com/custodia-labs/agency-connect/internal/adapters/driving/http"
	"github.com/custodia-labs/agency-connect/internal/config"
	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driving"
	"github.com/custodia-labs/agency-connect/internal/core/services"
	"github.com/custodia-labs/agency-connect/internal/metrics"
)

// App is the fully wired service
type App struct {
	Server       *httpadapter.Server
	OAuth        driving.OAuthService
	Integrations driving.IntegrationService
	Readiness    secrets.Readiness

	closers []func() error
}

// NewApp builds every component from cfg. Close releases what it opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	keys, readiness, err := cfg.ResolveKeys()
	app.Readiness = readiness
	for _, w := range readiness.Warnings {
		logger.Warn("configuration warning", "detail", w)
	}
	if err != nil {
		return nil, err
	}
	if keys.Ephemeral {
		logger.Warn("using ephemeral keys generated for this process")
	}

	jwtSecret, err := resolveJWTSecret(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := app.openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Optional replay guard; both stay untyped nil without Redis.
	var replayGuard driven.ReplayGuard
	var redisPinger httpadapter.Pinger
	if cfg.RedisURL != "" {
		client, err := redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		guard := redisadapter.NewReplayGuard(client)
		replayGuard, redisPinger = guard, guard
		logger.Info("oauth state replay guard enabled")
	}

	registry, err := providers.NewRegistry(cfg.ProviderRegistryConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMisconfigured, err)
	}
	configured := registry.Configured()
	logger.Info("providers configured", "providers", configured)
	if len(configured) == 0 {
		logger.Warn("no provider has client credentials; every authorization will fail")
	}

	signer, err := oauthstate.NewSigner(keys.Signing)
	if err != nil {
		return nil, err
	}
	cipher, err := secrets.NewTokenCipher(keys.Encryption)
	if err != nil {
		return nil, err
	}

	m := metrics.NewMetrics(metrics.DefaultNamespace)

	app.OAuth = services.NewOAuthService(services.OAuthServiceConfig{
		IntegrationStore: store,
		Providers:        registry,
		Exchanger: providers.NewExchanger(providers.ExchangerConfig{
			Timeout: cfg.TokenExchangeTimeout,
			Logger:  logger,
		}),
		Signer:      signer,
		Sealer:      cipher,
		ReplayGuard: replayGuard,
		Metrics:     m,
		Logger:      logger,
	})
	app.Integrations = services.NewIntegrationService(services.IntegrationServiceConfig{
		IntegrationStore: store,
		Sealer:           cipher,
		Logger:           logger,
	})

	app.Server = httpadapter.NewServer(
		httpadapter.Config{
			Host:          cfg.Host,
			Port:          cfg.Port,
			Version:         serverVersion(cfg),
			SettingsURL:     cfg.SettingsURL,
			SessionCookie:   cfg.SessionCookie,
			ExchangeTimeout: cfg.TokenExchangeTimeout,
			RateLimit: httpadapter.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimitRPS,
				Burst:             cfg.RateLimitBurst,
				TrustForwardedFor: cfg.TrustForwardedFor,
			},
			Logger: logger,
		},
		app.OAuth,
		app.Integrations,
		auth.NewAdapter(jwtSecret),
		m,
		store,
		redisPinger,
	)

	ok = true
	return app, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (driven.IntegrationStore, error) {
	driver, dsn := cfg.DatabaseDriver()
	switch driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		logger.Info("using sqlite integration store", "path", dsn)
		return sqlite.NewIntegrationStore(db.DB), nil
	default:
		db, err := postgres.Open(ctx, dsn, postgres.DefaultPoolConfig())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		logger.Info("using postgres integration store")
		return postgres.NewIntegrationStore(db.DB), nil
	}
}

// resolveJWTSecret requires a secret in strict production. Elsewhere a
// random one keeps the process up, but no external token will validate.
func resolveJWTSecret(cfg *config.Config, logger *slog.Logger) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}
	if cfg.IsStrictProduction() {
		return "", fmt.Errorf("%w: JWT_SECRET is required in production", domain.ErrMisconfigured)
	}
	key, err := secrets.GenerateKey()
	if err != nil {
		return "", err
	}
	logger.Warn("JWT_SECRET is not set; authenticated routes will reject every session token")
	return string(key), nil
}

// serverVersion prefers APP_VERSION over the link-time version.
func serverVersion(cfg *config.Config) string {
	if cfg.Version != "" {
		return cfg.Version
	}
	return Version
}

// Close releases every opened resource in reverse order
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
