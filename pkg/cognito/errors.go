package cognito

import (
	"errors"
	"fmt"

	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// Sentinel errors wrapped by token validation failures. Every validation
// failure except expiry carries [sserr.CodeAuthenticationInvalid].
var (
	ErrMalformedToken    = errors.New("malformed token")
	ErrInvalidAlgorithm  = errors.New("invalid token algorithm")
	ErrInvalidKeyID      = errors.New("invalid token key id")
	ErrInvalidSignature  = errors.New("invalid token signature")
	ErrMissingExpiration = errors.New("missing token expiration")
	ErrTokenExpired      = errors.New("token is expired")
	ErrInvalidIssuer     = errors.New("invalid token issuer")
	ErrMissingSubject    = errors.New("missing token subject")
	ErrInvalidAudience   = errors.New("invalid token audience or client id")
	ErrMissingIssuedAt   = errors.New("missing token issued at")
	ErrInvalidIssuedAt   = errors.New("invalid token issued at")
	ErrMissingJWTID      = errors.New("missing token jwt id")
)

// ErrUnsupported is returned by operations the provider does not offer yet.
var ErrUnsupported = errors.New("operation not supported")

// invalid builds the validation error for sentinel. format adds context
// after the sentinel text; it may be empty.
func invalid(sentinel error, format string, args ...any) error {
	msg := "cognito: " + sentinel.Error()
	if format != "" {
		msg += " " + fmt.Sprintf(format, args...)
	}
	return sserr.Wrap(sentinel, sserr.CodeAuthenticationInvalid, msg)
}

func expired() error {
	return sserr.Wrap(ErrTokenExpired, sserr.CodeAuthenticationExpired, "cognito: token validation failed")
}

// IsValidationError reports whether err is a token validation failure,
// including expiry.
func IsValidationError(err error) bool {
	return sserr.IsTokenInvalid(err) || sserr.IsTokenExpired(err)
}
