// Package auth attaches the caller's Cognito identity to HTTP requests.
//
// Two middlewares are provided. [BearerMiddleware] validates an access
// token sent in the Authorization header, for APIs called by other
// services or by a browser app holding the token. [SessionMiddleware]
// resolves the identity of a server-side session, for apps that ran the
// authorization code flow with a [cognito.Authenticator]. Both store an
// [Identity] in the request context, where handlers read it with
// [IdentityFromContext].
package auth

import (
	"time"

	"github.com/scalde/scalde-go/pkg/cognito"
)

// Source tells which credential an identity was built from.
type Source string

const (
	// SourceBearer is an access token from the Authorization header.
	SourceBearer Source = "bearer"

	// SourceSession is a token bundle held in a server-side session.
	SourceSession Source = "session"
)

func (s Source) String() string { return string(s) }

// Identity is an authenticated Cognito user.
type Identity struct {
	Subject  string    `json:"sub"`
	Email    string    `json:"email,omitempty"`
	Issuer   string    `json:"iss"`
	ClientID string    `json:"client_id"`
	ExpireAt time.Time `json:"exp"`
	Source   Source    `json:"source"`
}

// Expired reports whether the underlying token is expired at now.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpireAt.After(now)
}

// IdentityFromAccessToken builds an identity from a validated access
// token. Access tokens carry no email.
func IdentityFromAccessToken(t cognito.AccessToken, source Source) Identity {
	return Identity{
		Subject:  t.Subject,
		Issuer:   t.Issuer,
		ClientID: t.Audience,
		ExpireAt: t.ExpireAt,
		Source:   source,
	}
}

// IdentityFromTokens builds an identity from a token bundle, preferring
// the ID token. It returns false when the bundle has neither an ID nor
// an access token.
func IdentityFromTokens(t cognito.Tokens, source Source) (Identity, bool) {
	switch {
	case t.IDToken != nil:
		id := IdentityFromAccessToken(t.IDToken.AccessToken, source)
		id.Email = t.IDToken.Email
		return id, true
	case t.AccessToken != nil:
		return IdentityFromAccessToken(*t.AccessToken, source), true
	}
	return Identity{}, false
}
