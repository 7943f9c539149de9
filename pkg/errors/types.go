package errors

import (
	"fmt"
)

// Error is a structured error with a code, message, and optional cause.
//
// Message is safe to surface to end users. Anything sensitive (response
// bodies, raw tokens) belongs in logs, not here.
type Error struct {
	// Code is the machine-readable error code (e.g. "AUTH_003").
	Code Code

	// Message is the human-readable error message.
	Message string

	// Cause is the underlying error, reachable through Unwrap.
	Cause error

	// Details holds optional structured context such as the offending
	// claim name or a pipeline step name.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause so that errors.Is and errors.As can
// walk past the structured wrapper.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail returns a copy of e with key set to value in Details.
// The receiver is not modified.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: details,
	}
}

// Format implements fmt.Formatter. %+v prints the code, message, details,
// and cause chain; %v and %s print Error().
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "Error{Code: %q, Message: %q", e.Code, e.Message)
			if len(e.Details) > 0 {
				fmt.Fprintf(s, ", Details: %v", e.Details)
			}
			if e.Cause != nil {
				fmt.Fprintf(s, ", Cause: %+v", e.Cause)
			}
			fmt.Fprint(s, "}")
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
