package cognito

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// TokenResponse holds the raw tokens returned by the token endpoint.
// Cognito omits the refresh token on some grants.
type TokenResponse struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
}

// Provider is the network side of a user pool. [Client] is the production
// implementation; tests substitute fakes.
type Provider interface {
	FetchTokens(ctx context.Context, code string) (*TokenResponse, error)
	FetchPublicKeys(ctx context.Context) ([]PublicKey, error)
	SendLogout(ctx context.Context) error
}

// Client talks to the Cognito hosted UI and JWKS endpoints over HTTP.
type Client struct {
	cfg    *Config
	http   *http.Client
	oauth  *oauth2.Config
	logger *slog.Logger
}

var _ Provider = (*Client)(nil)

// NewClient returns a Client for cfg. A nil httpClient gets a traced
// default client bounded by cfg.HTTPTimeout; a nil logger uses
// slog.Default.
func NewClient(cfg *Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: httpClient,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret.Value(),
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.URL + "/oauth2/authorize",
				TokenURL:  cfg.TokenURL(),
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		logger: logger,
	}
}

// FetchTokens exchanges an authorization code at the token endpoint using
// HTTP basic client authentication. When the endpoint answers with an
// OAuth2 error code the returned error is retryable; any other failure is
// an authentication error. Response bodies are logged, never returned.
func (c *Client) FetchTokens(ctx context.Context, code string) (*TokenResponse, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			c.logger.WarnContext(ctx, "cognito: token endpoint returned an error",
				"status", status,
				"body", string(re.Body),
			)
			if oauthCode := retrieveErrorCode(re); oauthCode != "" {
				return nil, sserr.Newf(sserr.CodeAuthenticationRetryable,
					"cognito: failed to fetch tokens: %s", oauthCode).
					WithDetail("status", status)
			}
			return nil, sserr.New(sserr.CodeAuthentication, "cognito: failed to fetch tokens").
				WithDetail("status", status)
		}
		return nil, sserr.Wrap(err, sserr.CodeAuthentication, "cognito: failed to fetch tokens")
	}

	resp := &TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	resp.IDToken, _ = tok.Extra("id_token").(string)
	return resp, nil
}

// retrieveErrorCode returns the OAuth2 "error" field of a failed token
// response. x/oauth2 only parses it for JSON content types, so plain-text
// bodies holding JSON are decoded here too.
func retrieveErrorCode(re *oauth2.RetrieveError) string {
	if re.ErrorCode != "" {
		return re.ErrorCode
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(re.Body, &body) == nil {
		return body.Error
	}
	return ""
}

// FetchPublicKeys downloads the pool's JSON Web Key Set.
func (c *Client) FetchPublicKeys(ctx context.Context) ([]PublicKey, error) {
	body, err := c.get(ctx, c.cfg.JWKSURL(), "fetch public keys")
	if err != nil {
		return nil, err
	}

	var set struct {
		Keys []PublicKey `json:"keys"`
	}
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeAuthentication, "cognito: failed to decode public keys")
	}
	return set.Keys, nil
}

// SendLogout calls the hosted UI logout endpoint.
func (c *Client) SendLogout(ctx context.Context) error {
	_, err := c.get(ctx, c.cfg.LogoutURL(), "send logout")
	return err
}

// get performs a GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, url, action string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeInternal, "cognito: failed to build %s request", action)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		e := sserr.Wrapf(err, sserr.CodeAuthentication, "cognito: failed to %s", action)
		if errors.Is(err, context.DeadlineExceeded) {
			e = e.WithDetail("timeout", true)
		}
		return nil, e
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeAuthentication, "cognito: failed to read %s response", action)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "cognito: request failed",
			"action", action,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return nil, sserr.Newf(sserr.CodeAuthentication, "cognito: failed to %s: http error", action).
			WithDetail("status", resp.StatusCode)
	}
	return body, nil
}
