package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/custodia-labs/agency-connect/docs" // registers the OpenAPI document
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driving"
	"github.com/custodia-labs/agency-connect/internal/metrics"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	router      *http.ServeMux
	version     string
	settingsURL string
	logger      *slog.Logger

	// Services
	oauthService       driving.OAuthService
	integrationService driving.IntegrationService
	authAdapter        driven.AuthAdapter

	// Infrastructure
	metrics     *metrics.Metrics // optional
	limiter     *RateLimiter     // nil disables throttling
	db          Pinger
	redisClient Pinger // optional
	cookieName  string
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// SettingsURL is where callbacks redirect with success=<provider> or error=<code>
	SettingsURL string

	// SessionCookie is read when a browser navigation carries no Authorization header
	SessionCookie string

	// ExchangeTimeout bounds the provider call made inside a callback.
	// The write timeout is derived from it.
	ExchangeTimeout time.Duration

	RateLimit RateLimitConfig
	Logger    *slog.Logger
}

// writeTimeoutMargin is the time a callback may spend outside the token
// exchange (state check, sealing, persistence, redirect).
const writeTimeoutMargin = 15 * time.Second

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		SettingsURL:     "/settings/integrations",
		SessionCookie:   "agency_session",
		ExchangeTimeout: 30 * time.Second,
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	oauthService driving.OAuthService,
	integrationService driving.IntegrationService,
	authAdapter driven.AuthAdapter,
	m *metrics.Metrics, // can be nil
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:             http.NewServeMux(),
		version:            cfg.Version,
		settingsURL:        cfg.SettingsURL,
		logger:             logger,
		oauthService:       oauthService,
		integrationService: integrationService,
		authAdapter:        authAdapter,
		metrics:            m,
		db:                 db,
		redisClient:        redisClient,
		cookieName:         cfg.SessionCookie,
	}
	if s.settingsURL == "" {
		s.settingsURL = DefaultConfig().SettingsURL
	}

	var onLimited func()
	if m != nil {
		onLimited = m.IncRateLimited
	}
	s.limiter = NewRateLimiter(cfg.RateLimit, onLimited)

	handler := NewRecoveryMiddleware(logger).Handler(
		NewLoggingMiddleware(logger).Handler(s.router))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout(cfg.ExchangeTimeout),
		IdleTimeout:       60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// writeTimeout leaves room for a callback to wait out the full exchange.
func writeTimeout(exchange time.Duration) time.Duration {
	if exchange <= 0 {
		exchange = DefaultConfig().ExchangeTimeout
	}
	return exchange + writeTimeoutMargin
}

// Handler returns the fully wrapped root handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// handle registers a route, instrumenting it when metrics are enabled
func (s *Server) handle(pattern string, h http.Handler) {
	if s.metrics != nil {
		h = s.metrics.InstrumentRoute(pattern, h)
	}
	s.router.Handle(pattern, h)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authAdapter, s.cookieName)

	// Health endpoints (no auth)
	s.handle("GET /health", http.HandlerFunc(s.handleHealth))
	s.handle("GET /ready", http.HandlerFunc(s.handleReady))
	s.handle("GET /version", http.HandlerFunc(s.handleVersion))
	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics.Handler())
	}
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Browser entry points: redirect to the provider
	s.handle("GET /connect/{provider}",
		s.limiter.Handler(
			authMiddleware.Authenticate(
				authMiddleware.RequireManager(http.HandlerFunc(s.handleConnect)))))
	s.handle("GET /connect/{provider}/reauthorize",
		s.limiter.Handler(
			authMiddleware.Authenticate(
				authMiddleware.RequireManager(http.HandlerFunc(s.handleReauthorize)))))

	// Callback is public - receives redirects from OAuth providers
	s.handle("GET /oauth/callback", s.limiter.Handler(http.HandlerFunc(s.handleOAuthCallback)))
	s.handle("GET /api/v1/oauth/callback", s.limiter.Handler(http.HandlerFunc(s.handleOAuthCallback)))

	// OAuth flow endpoints (JSON)
	s.handle("POST /api/v1/oauth/{provider}/authorize",
		s.limiter.Handler(
			authMiddleware.Authenticate(
				authMiddleware.RequireManager(http.HandlerFunc(s.handleOAuthAuthorize)))))

	// Integration endpoints
	s.handle("GET /api/v1/integrations",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListIntegrations)))
	s.handle("GET /api/v1/integrations/{provider}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetIntegration)))
	s.handle("POST /api/v1/integrations/{provider}/disconnect",
		authMiddleware.Authenticate(
			authMiddleware.RequireManager(http.HandlerFunc(s.handleDisconnectIntegration))))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
