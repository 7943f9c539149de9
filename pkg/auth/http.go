package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/scalde/scalde-go/pkg/cognito"
)

// HeaderAuthorization carries the bearer access token.
const HeaderAuthorization = "Authorization"

const bearerPrefix = "Bearer "

// ExtractBearerToken returns the token of an Authorization header value.
// The "Bearer " prefix is matched case-insensitively. It returns "" when
// the header has no bearer token.
func ExtractBearerToken(authHeader string) string {
	if len(authHeader) <= len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(bearerPrefix):])
}

// KeySource returns the pool's public keys. [cognito.Authenticator.PublicKeys]
// is one, and caches the keys in its store.
type KeySource func(ctx context.Context) ([]cognito.PublicKey, error)

// SessionResolver returns the token bundle of the session r belongs to.
// An empty bundle means the request has no live session.
type SessionResolver func(r *http.Request) (cognito.Tokens, error)

// Option configures a middleware.
type Option func(*middleware)

// WithClock sets the time source used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(m *middleware) { m.now = now }
}

// WithLogger sets the logger for rejected requests. The default is
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *middleware) { m.logger = l }
}

// WithUnauthenticated replaces the default 401 response, for example with
// a redirect to the login page.
func WithUnauthenticated(h http.Handler) Option {
	return func(m *middleware) { m.unauthenticated = h }
}

type middleware struct {
	now             func() time.Time
	logger          *slog.Logger
	unauthenticated http.Handler
}

func newMiddleware(opts []Option) *middleware {
	m := &middleware{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *middleware) reject(w http.ResponseWriter, r *http.Request, msg string) {
	if m.unauthenticated != nil {
		m.unauthenticated.ServeHTTP(w, r)
		return
	}
	http.Error(w, msg, http.StatusUnauthorized)
}

// BearerMiddleware validates the access token of the Authorization header
// against cfg and the keys from keys. On success the [Identity] is stored
// in the request context; otherwise the request is answered with 401.
//
// Example:
//
//	api := auth.BearerMiddleware(&cfg, authenticator.PublicKeys)(mux)
func BearerMiddleware(cfg *cognito.Config, keys KeySource, opts ...Option) func(http.Handler) http.Handler {
	m := newMiddleware(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := ExtractBearerToken(r.Header.Get(HeaderAuthorization))
			if token == "" {
				m.reject(w, r, "missing or invalid authorization header")
				return
			}

			pub, err := keys(ctx)
			if err != nil {
				m.logger.ErrorContext(ctx, "auth: failed to get public keys", "error", err)
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}

			access, err := cognito.Parse[cognito.AccessToken](token, pub, cognito.AccessTokenStrategy{}, cfg, m.now())
			if err != nil {
				m.logger.WarnContext(ctx, "auth: bearer token rejected", "error", err)
				m.reject(w, r, "token validation failed")
				return
			}

			ctx = ContextWithIdentity(ctx, IdentityFromAccessToken(access, SourceBearer))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionMiddleware resolves the request's session with resolve and
// stores its [Identity] in the request context. Requests without a live
// session are answered with 401, or by the [WithUnauthenticated] handler.
func SessionMiddleware(resolve SessionResolver, opts ...Option) func(http.Handler) http.Handler {
	m := newMiddleware(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tokens, err := resolve(r)
			if err != nil {
				m.logger.ErrorContext(ctx, "auth: failed to resolve session", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			identity, ok := IdentityFromTokens(tokens, SourceSession)
			if !ok || identity.Expired(m.now()) {
				m.reject(w, r, "no active session")
				return
			}

			ctx = ContextWithIdentity(ctx, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
