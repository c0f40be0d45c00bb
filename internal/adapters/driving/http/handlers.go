package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid token"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports the state of each dependency
// @Description Readiness status with per-dependency checks
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the integration store and, when configured, Redis
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: map[string]string{}}
	status := http.StatusOK

	check := func(name string, p Pinger) {
		if p == nil {
			return
		}
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "dependency", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			return
		}
		resp.Checks[name] = "ok"
	}
	check("database", s.db)
	check("redis", s.redisClient)

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		s.logger.Error("failed to render api docs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// OAuth endpoints

// handleConnect godoc
// @Summary      Connect a provider
// @Description  Creates a disconnected integration and redirects to the provider consent page
// @Tags         OAuth
// @Produce      json
// @Param        provider  path  string  true  "Provider (slack, gmail, google_ads, meta_ads)"
// @Success      302
// @Failure      400  {object}  driving.OAuthError  "Unknown provider"
// @Failure      409  {object}  driving.OAuthError  "Already connected"
// @Failure      503  {object}  driving.OAuthError  "Provider not configured"
// @Security     BearerAuth
// @Router       /connect/{provider} [get]
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	resp, err := s.oauthService.BeginAuthorization(r.Context(), s.authorizeRequest(r))
	if err != nil {
		writeOAuthError(w, err)
		return
	}
	redirectNoStore(w, r, resp.AuthorizationURL)
}

// handleReauthorize godoc
// @Summary      Re-authorize a provider
// @Description  Issues a fresh consent redirect for an existing integration; tokens are replaced on callback
// @Tags         OAuth
// @Produce      json
// @Param        provider  path  string  true  "Provider"
// @Success      302
// @Failure      404  {object}  driving.OAuthError  "No integration for provider"
// @Security     BearerAuth
// @Router       /connect/{provider}/reauthorize [get]
func (s *Server) handleReauthorize(w http.ResponseWriter, r *http.Request) {
	resp, err := s.oauthService.Reauthorize(r.Context(), s.authorizeRequest(r))
	if err != nil {
		writeOAuthError(w, err)
		return
	}
	redirectNoStore(w, r, resp.AuthorizationURL)
}

// handleOAuthAuthorize godoc
// @Summary      Start OAuth authorization
// @Description  Same as /connect/{provider} but returns the authorization URL as JSON
// @Tags         OAuth
// @Produce      json
// @Param        provider  path      string  true  "Provider"
// @Success      200       {object}  driving.AuthorizeResponse
// @Failure      400       {object}  driving.OAuthError
// @Failure      409       {object}  driving.OAuthError
// @Failure      503       {object}  driving.OAuthError
// @Security     BearerAuth
// @Router       /api/v1/oauth/{provider}/authorize [post]
func (s *Server) handleOAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	resp, err := s.oauthService.BeginAuthorization(r.Context(), s.authorizeRequest(r))
	if err != nil {
		writeOAuthError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// handleOAuthCallback godoc
// @Summary      OAuth callback
// @Description  Receives the provider redirect and sends the user to the settings page with success=<provider> or error=<code>
// @Tags         OAuth
// @Param        code   query  string  false  "Authorization code"
// @Param        state  query  string  false  "Signed state"
// @Param        error  query  string  false  "Provider error"
// @Success      302
// @Router       /oauth/callback [get]
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result := s.oauthService.HandleCallback(r.Context(), driving.CallbackRequest{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	})

	// Keep the code and state out of the settings page's Referer
	w.Header().Set("Referrer-Policy", "no-referrer")
	redirectNoStore(w, r, result.RedirectURL(s.settingsURL))
}

// Integration endpoints

// handleListIntegrations godoc
// @Summary      List integrations
// @Description  Returns the tenant's integrations without credentials
// @Tags         Integrations
// @Produce      json
// @Success      200  {array}   domain.IntegrationSummary
// @Failure      401  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/v1/integrations [get]
func (s *Server) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	summaries, err := s.integrationService.ListForTenant(r.Context(), authCtx.TenantID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if summaries == nil {
		summaries = []*domain.IntegrationSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleGetIntegration godoc
// @Summary      Get integration
// @Description  Returns the tenant's integration for one provider without credentials
// @Tags         Integrations
// @Produce      json
// @Param        provider  path      string  true  "Provider"
// @Success      200       {object}  domain.IntegrationSummary
// @Failure      400       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/v1/integrations/{provider} [get]
func (s *Server) handleGetIntegration(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	summary, err := s.integrationService.Get(r.Context(), authCtx.TenantID, domain.ProviderType(r.PathValue("provider")))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleDisconnectIntegration godoc
// @Summary      Disconnect integration
// @Description  Drops stored credentials; the integration record and its id are kept
// @Tags         Integrations
// @Produce      json
// @Param        provider  path      string  true  "Provider"
// @Success      200       {object}  domain.IntegrationSummary
// @Failure      404       {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/v1/integrations/{provider}/disconnect [post]
func (s *Server) handleDisconnectIntegration(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	summary, err := s.integrationService.MarkDisconnected(r.Context(), authCtx.TenantID, domain.ProviderType(r.PathValue("provider")))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.logger.Info("integration disconnected",
		"provider", summary.Provider,
		"integration_id", summary.ID,
		"user_id", authCtx.UserID,
	)
	writeJSON(w, http.StatusOK, summary)
}

// Helper functions

func (s *Server) authorizeRequest(r *http.Request) driving.AuthorizeRequest {
	return driving.AuthorizeRequest{
		TenantID: GetAuthContext(r.Context()).TenantID,
		Provider: domain.ProviderType(r.PathValue("provider")),
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownProvider):
		writeError(w, http.StatusBadRequest, "unknown provider")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "integration not found")
	default:
		s.logger.Error("integration request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// oauthErrorResponse maps authorization-path failures to a structured body.
// Operator detail behind ErrMisconfigured never reaches the client.
func oauthErrorResponse(err error) (int, *driving.OAuthError) {
	switch {
	case errors.Is(err, domain.ErrUnknownProvider):
		return http.StatusBadRequest, driving.ErrOAuthUnknownProvider
	case errors.Is(err, domain.ErrMisconfigured):
		return http.StatusServiceUnavailable, driving.ErrOAuthNotConfigured
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, driving.ErrOAuthAlreadyConnected
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, driving.ErrOAuthNotConnected
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, driving.ErrOAuthInvalidRequest
	default:
		return http.StatusInternalServerError, driving.ErrOAuthServerError
	}
}

func writeOAuthError(w http.ResponseWriter, err error) {
	status, body := oauthErrorResponse(err)
	writeJSON(w, status, body)
}

func redirectNoStore(w http.ResponseWriter, r *http.Request, location string) {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, location, http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
