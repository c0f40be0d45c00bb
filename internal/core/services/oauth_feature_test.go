package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/agency-connect/internal/adapters/driven/oauthstate"
	"github.com/custodia-labs/agency-connect/internal/adapters/driven/providers"
	"github.com/custodia-labs/agency-connect/internal/adapters/driven/secrets"
	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driving"
)

func TestOAuthFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeOAuthScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// oauthWorld is the per-scenario state.
type oauthWorld struct {
	tenant string
	now    time.Time

	// token endpoint behaviour, read by the server goroutine
	mu          sync.Mutex
	status      int
	accessToken string

	tokenServer *httptest.Server
	store       *mocks.MockIntegrationStore
	signer      *oauthstate.Signer
	service     driving.OAuthService

	authURL string
	lastErr error
	result  *driving.CallbackResult
}

func initializeOAuthScenario(sc *godog.ScenarioContext) {
	w := &oauthWorld{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		w.now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
		w.status = http.StatusOK
		w.tokenServer = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			w.mu.Lock()
			status, token := w.status, w.accessToken
			w.mu.Unlock()

			rw.Header().Set("Content-Type", "application/json")
			rw.WriteHeader(status)
			if status == http.StatusOK {
				fmt.Fprintf(rw, `{"access_token":%q,"refresh_token":"1//r","expires_in":3599}`, token)
				return
			}
			_, _ = rw.Write([]byte(`{"error":"invalid_grant"}`))
		}))
		return ctx, w.build()
	})

	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if w.tokenServer != nil {
			w.tokenServer.Close()
		}
		return ctx, nil
	})

	sc.Step(`^a tenant "([^"]*)"$`, w.aTenant)
	sc.Step(`^the provider token endpoint returns access token "([^"]*)"$`, w.tokenEndpointReturns)
	sc.Step(`^the provider token endpoint responds with status (\d+)$`, w.tokenEndpointStatus)
	sc.Step(`^the tenant (?:begins|began) authorization for "([^"]*)"$`, w.beginAuthorization)
	sc.Step(`^the authorization URL points at "([^"]*)"$`, w.urlPointsAt)
	sc.Step(`^the authorization URL carries the client id "([^"]*)"$`, w.urlCarriesClientID)
	sc.Step(`^the authorization URL state verifies for "([^"]*)"$`, w.urlStateVerifies)
	sc.Step(`^the callback arrives with code "([^"]*)"$`, w.callbackArrives)
	sc.Step(`^the callback arrives (\d+) minutes later with code "([^"]*)"$`, w.callbackArrivesLater)
	sc.Step(`^the callback outcome is "([^"]*)"$`, w.callbackOutcomeIs)
	sc.Step(`^the integration for "([^"]*)" is (connected|disconnected)$`, w.integrationIs)
	sc.Step(`^the stored access token is ciphertext distinct from "([^"]*)"$`, w.storedTokenIsCiphertext)
	sc.Step(`^the request fails with a conflict$`, w.requestConflicts)
	sc.Step(`^the tenant has (\d+) integrations?$`, w.tenantHasIntegrations)
}

func (w *oauthWorld) build() error {
	signer, err := oauthstate.NewSigner([]byte("feature-signing-key-0123456789abcdef"))
	if err != nil {
		return err
	}
	cipher, err := secrets.NewTokenCipher([]byte("feature-encryption-key-012345678"))
	if err != nil {
		return err
	}
	registry, err := providers.NewRegistry(providers.Config{
		RedirectURL: "https://app.example.com/oauth/callback",
		Overrides: map[domain.ProviderType]domain.ProviderConfig{
			domain.ProviderTypeGmail: {
				ClientID:     "gmail-client-id",
				ClientSecret: "gmail-client-secret",
				TokenURL:     w.tokenServer.URL,
			},
		},
	})
	if err != nil {
		return err
	}

	w.signer = signer
	w.store = mocks.NewMockIntegrationStore()
	w.service = NewOAuthService(OAuthServiceConfig{
		IntegrationStore: w.store,
		Providers:        registry,
		Exchanger:        providers.NewExchanger(providers.ExchangerConfig{Timeout: 5 * time.Second}),
		Signer:           signer,
		Sealer:           cipher,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:              func() time.Time { return w.now },
	})
	return nil
}

func (w *oauthWorld) aTenant(tenant string) error {
	w.tenant = tenant
	return nil
}

func (w *oauthWorld) tokenEndpointReturns(token string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accessToken = token
	return nil
}

func (w *oauthWorld) tokenEndpointStatus(status int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	return nil
}

func (w *oauthWorld) beginAuthorization(provider string) error {
	resp, err := w.service.BeginAuthorization(context.Background(), driving.AuthorizeRequest{
		TenantID: w.tenant,
		Provider: domain.ProviderType(provider),
	})
	w.lastErr = err
	if err == nil {
		w.authURL = resp.AuthorizationURL
	}
	return nil
}

func (w *oauthWorld) parsedURL() (*url.URL, error) {
	if w.authURL == "" {
		return nil, fmt.Errorf("no authorization URL (last error: %v)", w.lastErr)
	}
	return url.Parse(w.authURL)
}

func (w *oauthWorld) urlPointsAt(host string) error {
	u, err := w.parsedURL()
	if err != nil {
		return err
	}
	if u.Host != host {
		return fmt.Errorf("expected host %q, got %q", host, u.Host)
	}
	return nil
}

func (w *oauthWorld) urlCarriesClientID(clientID string) error {
	u, err := w.parsedURL()
	if err != nil {
		return err
	}
	if got := u.Query().Get("client_id"); got != clientID {
		return fmt.Errorf("expected client_id %q, got %q", clientID, got)
	}
	return nil
}

func (w *oauthWorld) urlStateVerifies(provider string) error {
	u, err := w.parsedURL()
	if err != nil {
		return err
	}
	payload, ok := w.signer.Verify(u.Query().Get("state"))
	if !ok {
		return errors.New("state did not verify")
	}
	if string(payload.Provider) != provider {
		return fmt.Errorf("expected provider %q, got %q", provider, payload.Provider)
	}
	return nil
}

func (w *oauthWorld) callback(code string) error {
	u, err := w.parsedURL()
	if err != nil {
		return err
	}
	w.result = w.service.HandleCallback(context.Background(), driving.CallbackRequest{
		Code:  code,
		State: u.Query().Get("state"),
	})
	return nil
}

func (w *oauthWorld) callbackArrives(code string) error {
	return w.callback(code)
}

func (w *oauthWorld) callbackArrivesLater(minutes int, code string) error {
	w.now = w.now.Add(time.Duration(minutes) * time.Minute)
	return w.callback(code)
}

func (w *oauthWorld) callbackOutcomeIs(outcome string) error {
	if w.result == nil {
		return errors.New("no callback was handled")
	}
	if string(w.result.Outcome) != outcome {
		return fmt.Errorf("expected outcome %q, got %q", outcome, w.result.Outcome)
	}
	return nil
}

func (w *oauthWorld) integrationIs(provider, state string) error {
	integration, err := w.store.GetByTenantProvider(context.Background(), w.tenant, domain.ProviderType(provider))
	if err != nil {
		return err
	}
	want := state == "connected"
	if integration.IsConnected != want {
		return fmt.Errorf("expected connected=%v, got %v", want, integration.IsConnected)
	}
	if !want && integration.AccessTokenSealed != "" {
		return errors.New("disconnected integration holds a sealed token")
	}
	return nil
}

func (w *oauthWorld) storedTokenIsCiphertext(plaintext string) error {
	integration, err := w.store.GetByTenantProvider(context.Background(), w.tenant, domain.ProviderTypeGmail)
	if err != nil {
		return err
	}
	sealed := integration.AccessTokenSealed
	if sealed == "" {
		return errors.New("no sealed access token stored")
	}
	if sealed == plaintext || strings.Contains(sealed, plaintext) {
		return errors.New("stored access token contains the plaintext")
	}
	if _, err := secrets.Deserialize(sealed); err != nil {
		return fmt.Errorf("stored access token is not an envelope: %w", err)
	}
	return nil
}

func (w *oauthWorld) requestConflicts() error {
	if !errors.Is(w.lastErr, domain.ErrAlreadyExists) {
		return fmt.Errorf("expected conflict, got %v", w.lastErr)
	}
	return nil
}

func (w *oauthWorld) tenantHasIntegrations(n int) error {
	list, err := w.store.ListByTenant(context.Background(), w.tenant)
	if err != nil {
		return err
	}
	if len(list) != n {
		return fmt.Errorf("expected %d integrations, got %d", n, len(list))
	}
	return nil
}
