package errors

// Code is a machine-readable error code of the form CATEGORY_XXX.
type Code string

const (
	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates a required argument or field is missing.
	CodeValidationRequired Code = "VAL_002"

	// CodeValidationFormat indicates a value has an invalid format.
	CodeValidationFormat Code = "VAL_003"

	// CodeAuthentication is the generic, non-retryable authentication
	// failure: transport errors, empty provider responses, missing keys.
	CodeAuthentication Code = "AUTH_001"

	// CodeAuthenticationExpired indicates the token "exp" claim is in the past.
	CodeAuthenticationExpired Code = "AUTH_002"

	// CodeAuthenticationInvalid indicates a structural, signature, or claim
	// validation failure. Never retryable.
	CodeAuthenticationInvalid Code = "AUTH_003"

	// CodeAuthenticationMissing indicates no credentials were presented.
	CodeAuthenticationMissing Code = "AUTH_004"

	// CodeAuthenticationRetryable indicates the identity provider answered
	// with a structured OAuth2 error body. The caller may retry.
	CodeAuthenticationRetryable Code = "AUTH_005"

	// CodePipelineDefinition indicates a pipeline or step was built with
	// invalid arguments.
	CodePipelineDefinition Code = "PIPE_001"

	// CodePipelineProcess indicates a step failed while processing data.
	CodePipelineProcess Code = "PIPE_002"

	// CodePipelineIO indicates loading or exporting a dataset failed.
	CodePipelineIO Code = "PIPE_003"

	// CodeDataValidation indicates output data failed a data validation.
	CodeDataValidation Code = "DATA_001"

	// CodeInternal indicates a general internal error.
	CodeInternal Code = "INT_001"

	// CodeInternalDatabase indicates a database or cache operation failed.
	CodeInternalDatabase Code = "INT_002"

	// CodeInternalConfiguration indicates a configuration error.
	CodeInternalConfiguration Code = "INT_003"

	// CodeUnsupported indicates an operation that exists in the API but is
	// not implemented.
	CodeUnsupported Code = "INT_004"

	// CodeUnavailable indicates a general service unavailable error.
	CodeUnavailable Code = "UNAVAIL_001"

	// CodeUnavailableDependency indicates a dependent service is unreachable.
	CodeUnavailableDependency Code = "UNAVAIL_002"

	// CodeTimeout indicates a general timeout error.
	CodeTimeout Code = "TIMEOUT_001"

	// CodeTimeoutDatabase indicates a database or cache operation timed out.
	CodeTimeoutDatabase Code = "TIMEOUT_002"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the prefix of the code before the first underscore
// (e.g. "AUTH" for "AUTH_002").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
