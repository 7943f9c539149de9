// Package testutil holds test helpers shared by the scalde-go packages:
// error-code assertions, temp files, environment overrides, and Cognito
// signing keys and JWKS documents (see tokens.go).
//
// Helpers that stop the test use require; the others use assert and
// return whether they passed.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// RequireErrorCode stops the test unless err is an *sserr.Error with
// code.
//
//	_, err := authenticator.Tokens(ctx, code, keys)
//	testutil.RequireErrorCode(t, err, sserr.CodeAuthenticationExpired)
func RequireErrorCode(t testing.TB, err error, code sserr.Code, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	e, ok := sserr.AsError(err)
	require.True(t, ok, "expected *sserr.Error, got %T: %v", err, err)
	require.Equal(t, code, e.Code, "got code %q, want %q (message: %s)", e.Code, code, e.Message)
}

// TempConfigFile writes content to config<ext> in a fresh temp directory
// and returns its path.
func TempConfigFile(t testing.TB, content, ext string) string {
	t.Helper()
	return TempFile(t, "config"+ext, content)
}

// TempFile writes content to name in a fresh temp directory and returns
// its path. The file is readable by the owner only.
func TempFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600), "write %s", path)
	return path
}

// SetEnv sets key for the rest of the test. Tests using it must not run
// in parallel.
func SetEnv(t testing.TB, key, value string) {
	t.Helper()
	t.Setenv(key, value)
}

// UnsetEnv removes key for the rest of the test and restores it
// afterwards.
func UnsetEnv(t testing.TB, key string) {
	t.Helper()
	// t.Setenv registers the restore; the unset happens right after.
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

// AssertJSONNotContains fails when the JSON encoding of v contains
// unexpected, typically a secret that should be redacted.
func AssertJSONNotContains(t testing.TB, v any, unexpected string) bool {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err, "json.Marshal failed")
	return assert.NotContains(t, string(data), unexpected, "JSON output: %s", data)
}
