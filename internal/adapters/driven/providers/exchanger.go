package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
)

// Ensure Exchanger implements TokenExchanger
var _ driven.TokenExchanger = (*Exchanger)(nil)

const (
	// DefaultTimeout bounds one code exchange round trip.
	DefaultTimeout = 30 * time.Second

	// maxResponseSize caps how much of a token response is read.
	maxResponseSize = 1 << 20
)

// ExchangeKind classifies a failed exchange.
type ExchangeKind string

const (
	KindMisconfigured ExchangeKind = "misconfigured"
	KindTimeout       ExchangeKind = "timeout"
	KindNetwork       ExchangeKind = "network"
	KindStatus        ExchangeKind = "status"
	KindRejected      ExchangeKind = "rejected"
	KindDecode        ExchangeKind = "decode"
)

// ExchangeError describes a failed exchange without any provider body text.
type ExchangeError struct {
	Provider   domain.ProviderType
	Kind       ExchangeKind
	StatusCode int
}

func (e *ExchangeError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("token exchange with %s failed: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("token exchange with %s failed: %s", e.Provider, e.Kind)
}

// Unwrap lets callers match domain.ErrTokenExchangeFailed for every kind and
// domain.ErrTokenExchangeTimeout for timeouts.
func (e *ExchangeError) Unwrap() []error {
	switch e.Kind {
	case KindTimeout:
		return []error{domain.ErrTokenExchangeTimeout, domain.ErrTokenExchangeFailed}
	case KindMisconfigured:
		return []error{domain.ErrMisconfigured, domain.ErrTokenExchangeFailed}
	default:
		return []error{domain.ErrTokenExchangeFailed}
	}
}

// ExchangerConfig holds the exchanger dependencies.
type ExchangerConfig struct {
	// HTTPClient defaults to a client without its own timeout; the
	// per-call context deadline is what bounds the exchange.
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Exchanger performs the authorization-code exchange over HTTP.
type Exchanger struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// NewExchanger creates an exchanger.
func NewExchanger(cfg ExchangerConfig) *Exchanger {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Exchanger{
		httpClient: cfg.HTTPClient,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// Exchange posts the code to the provider token endpoint as a form and
// normalizes the response. It is single-shot: the code is single-use, so a
// failure is never retried.
func (e *Exchanger) Exchange(ctx context.Context, cfg *domain.ProviderConfig, code string) (*domain.TokenSet, error) {
	if !cfg.HasClientCredentials() || cfg.TokenURL == "" {
		return nil, &ExchangeError{Provider: providerOf(cfg), Kind: KindMisconfigured}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	form := url.Values{
		"code":          {code},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
		"redirect_uri":  {cfg.RedirectURL},
	}
	for k, v := range cfg.ExtraTokenParams {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ExchangeError{Provider: cfg.Provider, Kind: KindMisconfigured}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, e.transportError(cfg.Provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, e.transportError(cfg.Provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ExchangeError{Provider: cfg.Provider, Kind: KindStatus, StatusCode: resp.StatusCode}
	}

	tokens, err := normalizerFor(cfg.Provider)(body)
	if err != nil {
		kind := KindDecode
		if errors.Is(err, errRejected) {
			kind = KindRejected
		}
		return nil, &ExchangeError{Provider: cfg.Provider, Kind: kind, StatusCode: resp.StatusCode}
	}
	return tokens, nil
}

// transportError classifies a request failure. The underlying error may
// carry the endpoint URL, so it only goes to debug logs.
func (e *Exchanger) transportError(provider domain.ProviderType, err error) error {
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	e.logger.Debug("token exchange transport failure",
		"provider", provider,
		"kind", kind,
		"error", err,
	)
	return &ExchangeError{Provider: provider, Kind: kind}
}
