package errors

import (
	"fmt"
)

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with the given code and a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a code and message. It returns nil when err is nil.
//
//	keys, err := client.FetchPublicKeys(ctx)
//	if err != nil {
//	    return errors.Wrap(err, errors.CodeAuthentication, "cognito: failed to fetch public keys")
//	}
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf wraps err with a code and a formatted message. It returns nil when
// err is nil.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Validation creates a VAL_001 error.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Unauthenticated creates an AUTH_001 error.
func Unauthenticated(message string) *Error {
	return New(CodeAuthentication, message)
}

// Retryable creates an AUTH_005 error.
func Retryable(message string) *Error {
	return New(CodeAuthenticationRetryable, message)
}

// Unsupported creates an INT_004 error.
func Unsupported(message string) *Error {
	return New(CodeUnsupported, message)
}

// Internal creates an INT_001 error.
func Internal(message string) *Error {
	return New(CodeInternal, message)
}
