package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// SigningKey is an RSA key pair with a key ID, used to mint tokens the way
// a Cognito user pool would and to publish the matching JWKS entry.
type SigningKey struct {
	KID     string
	Private *rsa.PrivateKey
}

// NewSigningKey generates a 2048-bit RSA signing key identified by kid.
func NewSigningKey(t testing.TB, kid string) *SigningKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "failed to generate RSA key")
	return &SigningKey{KID: kid, Private: key}
}

// JWK returns the public half of the key as a JSON Web Key.
func (k *SigningKey) JWK() jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       &k.Private.PublicKey,
		KeyID:     k.KID,
		Algorithm: "RS256",
		Use:       "sig",
	}
}

// JWKJSON returns the public JWK serialized as JSON.
func (k *SigningKey) JWKJSON(t testing.TB) []byte {
	t.Helper()
	data, err := json.Marshal(k.JWK())
	require.NoError(t, err, "failed to marshal JWK")
	return data
}

// Sign mints an RS256 token carrying claims. The kid header is set from
// the key unless headers overrides it; a nil header value removes the
// header entirely.
func (k *SigningKey) Sign(t testing.TB, claims map[string]any, headers map[string]any) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
	token.Header["kid"] = k.KID
	for name, value := range headers {
		if value == nil {
			delete(token.Header, name)
			continue
		}
		token.Header[name] = value
	}
	signed, err := token.SignedString(k.Private)
	require.NoError(t, err, "failed to sign token")
	return signed
}

// JWKSDocument renders keys as a JSON Web Key Set document.
func JWKSDocument(t testing.TB, keys ...*SigningKey) []byte {
	t.Helper()
	set := jose.JSONWebKeySet{}
	for _, k := range keys {
		set.Keys = append(set.Keys, k.JWK())
	}
	data, err := json.Marshal(set)
	require.NoError(t, err, "failed to marshal JWKS")
	return data
}

// JWKSServer serves the key set at /.well-known/jwks.json and counts the
// requests it receives. The server is closed when the test finishes.
type JWKSServer struct {
	*httptest.Server
	hits atomic.Int32
}

// Hits returns the number of JWKS requests served so far.
func (s *JWKSServer) Hits() int {
	return int(s.hits.Load())
}

// NewJWKSServer starts a JWKS endpoint publishing keys.
func NewJWKSServer(t testing.TB, keys ...*SigningKey) *JWKSServer {
	t.Helper()
	doc := JWKSDocument(t, keys...)
	srv := &JWKSServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/jwks.json" {
			http.NotFound(w, r)
			return
		}
		srv.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}
