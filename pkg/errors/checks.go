package errors

import (
	"errors"
)

// AsError returns the outermost *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetCode returns the code of the outermost *Error in err's chain, or ""
// when there is none.
func GetCode(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries exactly the given code.
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

func hasCategory(err error, category string) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == category
}

// IsValidation reports whether err is a VAL_xxx error.
func IsValidation(err error) bool {
	return hasCategory(err, "VAL")
}

// IsAuthentication reports whether err is any AUTH_xxx error.
func IsAuthentication(err error) bool {
	return hasCategory(err, "AUTH")
}

// IsTokenExpired reports whether err signals an expired token (AUTH_002).
// Callers typically handle it by sending the user back through the
// authorization flow instead of rejecting the request outright.
func IsTokenExpired(err error) bool {
	return HasCode(err, CodeAuthenticationExpired)
}

// IsTokenInvalid reports whether err signals a malformed, tampered, or
// claim-violating token (AUTH_003).
func IsTokenInvalid(err error) bool {
	return HasCode(err, CodeAuthenticationInvalid)
}

// IsPipeline reports whether err is a PIPE_xxx error.
func IsPipeline(err error) bool {
	return hasCategory(err, "PIPE")
}

// IsDataValidation reports whether err is a DATA_xxx error.
func IsDataValidation(err error) bool {
	return hasCategory(err, "DATA")
}

// IsInternal reports whether err is an INT_xxx error.
func IsInternal(err error) bool {
	return hasCategory(err, "INT")
}

// IsUnsupported reports whether err is an INT_004 error.
func IsUnsupported(err error) bool {
	return HasCode(err, CodeUnsupported)
}

// IsUnavailable reports whether err is an UNAVAIL_xxx error.
func IsUnavailable(err error) bool {
	return hasCategory(err, "UNAVAIL")
}

// IsTimeout reports whether err is a TIMEOUT_xxx error.
func IsTimeout(err error) bool {
	return hasCategory(err, "TIMEOUT")
}

// IsRetryable reports whether the operation that produced err may succeed
// if retried: provider-reported OAuth2 errors (AUTH_005), timeouts, and
// unavailable dependencies. Nothing in this module retries on its own.
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	if e.Code == CodeAuthenticationRetryable {
		return true
	}
	switch e.Code.Category() {
	case "TIMEOUT", "UNAVAIL":
		return true
	default:
		return false
	}
}
