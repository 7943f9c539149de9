// Package fixtures provides shared test data constants for the scalde-go
// test suite.
//
// Using common constants for Cognito identities and pool settings keeps
// magic strings out of tests and lets packages agree on what a valid token
// looks like.
package fixtures

import "time"

// Standard Cognito user pool values used across cognito and store tests.
const (
	// Region is the AWS region of the test user pool.
	Region = "eu-west-1"

	// UserPoolID is the identifier of the test user pool.
	UserPoolID = "eu-west-1_TestPool"

	// Issuer is the issuer URL Cognito uses for [UserPoolID].
	Issuer = "https://cognito-idp." + Region + ".amazonaws.com/" + UserPoolID

	// ClientID is the app client the test tokens are issued to.
	ClientID = "test-client-id"

	// ClientSecret is the app client secret. Only suitable for unit tests.
	ClientSecret = "test-client-secret"

	// RedirectURI is the registered OAuth2 callback.
	RedirectURI = "https://app.example.test/callback"

	// KeyID is the kid of the default signing key.
	KeyID = "test-kid-1"

	// Algorithm is the signing algorithm of the test pool.
	Algorithm = "RS256"
)

// Standard identity claims used in token tests.
const (
	// Subject is the default sub claim.
	Subject = "4c8f2a10-user-0001"

	// Email is the default email claim on ID tokens.
	Email = "jane.doe@example.test"

	// JWTID is the default jti claim.
	JWTID = "8d1e1f4a-jti-0001"

	// AuthCode is an authorization code accepted by fake token endpoints.
	AuthCode = "auth-code-123"
)

// Standard database values used in store and client tests.
const (
	// DBHost is the default database host for test configurations.
	DBHost = "localhost"

	// DBPort is the default database port for test configurations.
	DBPort = 5432

	// DBName is the default database name for test configurations.
	DBName = "testdb"

	// DBUser is the default database user for test configurations.
	DBUser = "testuser"

	// DBPassword is a deliberately weak password for unit tests.
	DBPassword = "testpass"
)

// Now is a fixed reference time for clock-injected tests.
var Now = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

// AccessClaims returns a valid Cognito access-token claim set relative to
// now. Callers mutate the returned map to produce invalid variants.
func AccessClaims(now time.Time) map[string]any {
	return map[string]any{
		"sub":       Subject,
		"iss":       Issuer,
		"client_id": ClientID,
		"token_use": "access",
		"scope":     "openid email",
		"iat":       now.Add(-time.Minute).Unix(),
		"exp":       now.Add(time.Hour).Unix(),
		"jti":       JWTID,
	}
}

// IDClaims returns a valid Cognito ID-token claim set relative to now.
func IDClaims(now time.Time) map[string]any {
	return map[string]any{
		"sub":       Subject,
		"iss":       Issuer,
		"aud":       ClientID,
		"token_use": "id",
		"email":     Email,
		"iat":       now.Add(-time.Minute).Unix(),
		"exp":       now.Add(time.Hour).Unix(),
		"jti":       JWTID + "-id",
	}
}
