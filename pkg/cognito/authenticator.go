package cognito

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/scalde/scalde-go/pkg/cognito"

// Authenticator runs the authorization code flow against one user pool on
// behalf of one session. Without a [Store] it is stateless and every call
// goes to the network.
type Authenticator struct {
	cfg        Config
	provider   Provider
	httpClient *http.Client
	store      Store
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// Option configures an [Authenticator].
type Option func(*Authenticator)

// WithStore persists tokens and public keys in s.
func WithStore(s Store) Option {
	return func(a *Authenticator) { a.store = s }
}

// WithProvider replaces the HTTP client used to reach the pool.
func WithProvider(p Provider) Option {
	return func(a *Authenticator) { a.provider = p }
}

// WithLogger sets the logger. The default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithHTTPClient sets the HTTP client of the default [Client]. It has no
// effect together with [WithProvider].
func WithHTTPClient(c *http.Client) Option {
	return func(a *Authenticator) { a.httpClient = c }
}

// NewAuthenticator validates cfg and returns an Authenticator.
func NewAuthenticator(cfg Config, opts ...Option) (*Authenticator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Authenticator{
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.provider == nil {
		a.provider = NewClient(&a.cfg, a.httpClient, a.logger)
	}
	return a, nil
}

// Config returns a copy of the validated configuration.
func (a *Authenticator) Config() Config { return a.cfg }

// AuthorizationURL returns the hosted UI URL that starts a login.
func (a *Authenticator) AuthorizationURL() string {
	return a.cfg.AuthorizeURL()
}

// PublicKeys returns the pool's signing keys. Keys already in the store
// are returned without a network call; freshly fetched keys are written
// to the store.
func (a *Authenticator) PublicKeys(ctx context.Context) (keys []PublicKey, err error) {
	ctx, span := a.startSpan(ctx, "cognito.PublicKeys")
	defer func() { finishSpan(span, err) }()

	if a.store != nil {
		cached, ok, err := a.store.PublicKeys(ctx)
		if err != nil {
			return nil, sserr.Wrap(err, sserr.CodeInternalDatabase, "cognito: failed to read public keys")
		}
		if ok {
			a.logger.DebugContext(ctx, "cognito: public keys already fetched", "count", len(cached))
			span.SetAttributes(attribute.Bool("cognito.cache_hit", true))
			return cached, nil
		}
	}

	keys, err = a.provider.FetchPublicKeys(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "cognito: failed to fetch public keys", "error", err)
		if _, ok := sserr.AsError(err); ok {
			return nil, err
		}
		return nil, sserr.Wrap(err, sserr.CodeAuthentication, "cognito: failed to fetch public keys")
	}
	if len(keys) == 0 {
		return nil, sserr.New(sserr.CodeAuthentication, "cognito: failed to fetch public keys: empty response")
	}

	if a.store != nil {
		if err := a.store.SetPublicKeys(ctx, keys); err != nil {
			return nil, sserr.Wrap(err, sserr.CodeInternalDatabase, "cognito: failed to store public keys")
		}
	}
	span.SetAttributes(attribute.Int("cognito.key_count", len(keys)))
	return keys, nil
}

// Tokens returns the session's tokens.
//
// If the store holds an access token that has not expired, the stored
// bundle is returned as is. Otherwise an empty code yields an empty bundle,
// and a non-empty code is exchanged at the token endpoint. The returned
// access and ID tokens are fully validated against keys before they are
// stored; keys may be nil when a store is configured, in which case the
// stored (or freshly fetched) public keys are used.
func (a *Authenticator) Tokens(ctx context.Context, code string, keys []PublicKey) (tokens Tokens, err error) {
	ctx, span := a.startSpan(ctx, "cognito.Tokens")
	defer func() { finishSpan(span, err) }()

	if len(keys) == 0 && a.store == nil {
		return Tokens{}, sserr.New(sserr.CodeValidation, "cognito: public keys are required when no store is configured")
	}

	now := a.now()

	if a.store != nil {
		cached, ok, err := a.cachedTokens(ctx, now)
		if err != nil {
			return Tokens{}, err
		}
		if ok {
			span.SetAttributes(attribute.Bool("cognito.cache_hit", true))
			return cached, nil
		}
	}

	if code == "" {
		return Tokens{}, nil
	}

	if len(keys) == 0 {
		if keys, err = a.PublicKeys(ctx); err != nil {
			return Tokens{}, err
		}
	}

	resp, err := a.provider.FetchTokens(ctx, code)
	if err != nil {
		return Tokens{}, err
	}

	access, err := Parse[AccessToken](resp.AccessToken, keys, AccessTokenStrategy{}, &a.cfg, now)
	if err != nil {
		return Tokens{}, err
	}
	id, err := Parse[IDToken](resp.IDToken, keys, IDTokenStrategy{}, &a.cfg, now)
	if err != nil {
		return Tokens{}, err
	}

	tokens = Tokens{AccessToken: &access, IDToken: &id}
	if resp.RefreshToken != "" {
		tokens.RefreshToken = &RefreshToken{Raw: resp.RefreshToken}
	}

	if a.store != nil {
		if err := a.storeTokens(ctx, tokens); err != nil {
			return Tokens{}, err
		}
	}
	return tokens, nil
}

// RefreshTokens is not supported yet; Cognito's refresh_token grant has no
// caller in this module.
func (a *Authenticator) RefreshTokens(context.Context) (Tokens, error) {
	return Tokens{}, sserr.Wrap(ErrUnsupported, sserr.CodeUnsupported, "cognito: refreshing tokens")
}

// Logout ends the session at the hosted UI and removes the access, ID and
// refresh tokens from the store. The tokens are removed even when the
// logout request fails, in which case that error is returned. Public keys
// stay cached.
func (a *Authenticator) Logout(ctx context.Context) (err error) {
	ctx, span := a.startSpan(ctx, "cognito.Logout")
	defer func() { finishSpan(span, err) }()

	sendErr := a.provider.SendLogout(ctx)
	if sendErr != nil {
		a.logger.WarnContext(ctx, "cognito: logout request failed", "error", sendErr)
	}

	if a.store != nil {
		if err := a.store.Delete(ctx, tokenKeys...); err != nil {
			return sserr.Wrap(err, sserr.CodeInternalDatabase, "cognito: failed to clear session tokens")
		}
	}

	if sendErr != nil {
		if _, ok := sserr.AsError(sendErr); ok {
			return sendErr
		}
		return sserr.Wrap(sendErr, sserr.CodeAuthentication, "cognito: failed to send logout")
	}
	return nil
}

// cachedTokens returns the stored bundle when the stored access token is
// still valid at now. The refresh token is returned verbatim.
func (a *Authenticator) cachedTokens(ctx context.Context, now time.Time) (Tokens, bool, error) {
	access, ok, err := a.store.AccessToken(ctx)
	if err != nil {
		return Tokens{}, false, sserr.Wrap(err, sserr.CodeInternalDatabase, "cognito: failed to read access token")
	}
	if !ok || access.Expired(now) {
		return Tokens{}, false, nil
	}

	tokens := Tokens{AccessToken: &access}
	if id, ok, err := a.store.IDToken(ctx); err != nil {
		return Tokens{}, false, sserr.Wrap(err, sserr.CodeInternalDatabase, "cognito: failed to read id token")
	} else if ok {
		tokens.IDToken = &id
	}
	if refresh, ok, err := a.store.RefreshToken(ctx); err != nil {
		return Tokens{}, false, sserr.Wrap(err, sserr.CodeInternalDatabase, "cognito: failed to read refresh token")
	} else if ok {
		tokens.RefreshToken = &refresh
	}

	a.logger.DebugContext(ctx, "cognito: returning cached tokens", "subject", access.Subject)
	return tokens, true, nil
}

func (a *Authenticator) storeTokens(ctx context.Context, t Tokens) error {
	if err := a.store.SetAccessToken(ctx, *t.AccessToken); err != nil {
		return sserr.Wrap(err, sserr.CodeInternalDatabase, "cognito: failed to store access token")
	}
	if err := a.store.SetIDToken(ctx, *t.IDToken); err != nil {
		return sserr.Wrap(err, sserr.CodeInternalDatabase, "cognito: failed to store id token")
	}
	if t.RefreshToken != nil {
		if err := a.store.SetRefreshToken(ctx, *t.RefreshToken); err != nil {
			return sserr.Wrap(err, sserr.CodeInternalDatabase, "cognito: failed to store refresh token")
		}
	}
	return nil
}

func (a *Authenticator) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	ctx, span := a.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("cognito.issuer", a.cfg.Issuer),
		attribute.String("cognito.client_id", a.cfg.ClientID),
	)
	return ctx, span
}

// finishSpan records err on the span (if any) and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
