// Package cognito exchanges OAuth2 authorization codes with an AWS Cognito
// user pool and validates the JWTs it issues.
//
// The package is split along the lifecycle of a token:
//
//   - [ParseToken] decodes the unverified header and payload segments
//   - [ValidateRawToken], [ValidateHeader], [ValidateSignature] and the
//     payload validators check a token against the pool's public keys and
//     the client configuration
//   - [MapAccessToken] and [MapIDToken] turn validated claims into
//     [AccessToken] and [IDToken] values
//   - [Authenticator] drives the login flow: it fetches and caches the
//     pool's JWKS, exchanges authorization codes, validates the returned
//     tokens and persists them in a [Store]
//
// # Error Handling
//
// Failures are reported as *sserr.Error values. Token problems carry
// [sserr.CodeAuthenticationInvalid] and wrap one of the sentinel errors
// declared in this package, so callers can branch with errors.Is:
//
//	tokens, err := auth.Tokens(ctx, code, nil)
//	switch {
//	case sserr.IsTokenExpired(err):
//	    // send the user back to the login page
//	case errors.Is(err, cognito.ErrInvalidAudience):
//	    // token minted for another app client
//	case sserr.IsRetryable(err):
//	    // the token endpoint asked us to try again
//	}
//
// # Tracing
//
// [Authenticator.Tokens], [Authenticator.PublicKeys] and
// [Authenticator.Logout] each record an OpenTelemetry span. Token values
// are never attached to spans or log records.
package cognito
