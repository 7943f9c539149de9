// Package errors provides the structured error type shared by every scalde
// package. Each error carries a machine-readable [Code], a human-readable
// message, an optional cause, and optional structured details.
//
// # Error Categories
//
//   - Validation errors (VAL_xxx): caller mistakes such as missing arguments
//   - Authentication errors (AUTH_xxx): identity provider and token failures
//   - Pipeline errors (PIPE_xxx): badly defined or failing data pipelines
//   - Data errors (DATA_xxx): output data rejected by a data validation
//   - Internal errors (INT_xxx): unexpected failures and unsupported operations
//   - Unavailable errors (UNAVAIL_xxx): a dependency cannot be reached
//   - Timeout errors (TIMEOUT_xxx): an operation exceeded its deadline
//
// The authentication category maps the token-exchange failure taxonomy:
//
//	AUTH_001  generic, non-retryable authentication failure
//	AUTH_002  the token is expired; prompt the user to re-authenticate
//	AUTH_003  the token is malformed, tampered with, or fails a claim check
//	AUTH_004  credentials are missing
//	AUTH_005  the identity provider rejected the request; the caller may retry
//
// # Usage
//
//	err := errors.New(errors.CodeAuthentication, "cognito: failed to fetch public keys")
//
//	if errors.IsTokenExpired(err) {
//	    // redirect to the authorization URL
//	}
package errors
