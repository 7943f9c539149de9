package cognito

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// ValidateRawToken checks that raw is a compact JWS: three dot-separated
// segments. It does not decode anything.
func ValidateRawToken(raw string) error {
	if raw == "" {
		return invalid(ErrMalformedToken, "token is empty")
	}
	if n := strings.Count(raw, ".") + 1; n != 3 {
		return invalid(ErrMalformedToken, "expected 3 segments, got %d", n)
	}
	return nil
}

// ValidateHeader checks that the token is signed with the configured
// algorithm. It runs before any key lookup so a token using another
// algorithm never reaches signature verification.
func ValidateHeader(header Header, cfg *Config) error {
	if alg := header.Alg(); alg != cfg.Algorithm {
		return invalid(ErrInvalidAlgorithm, "%q", alg)
	}
	return nil
}

// SelectKey returns the key whose kid matches the token header.
func SelectKey(header Header, keys []PublicKey) (PublicKey, error) {
	kid := header.KID()
	if kid == "" {
		return PublicKey{}, invalid(ErrInvalidKeyID, "kid header is missing")
	}
	for _, k := range keys {
		if k.KID == kid {
			return k, nil
		}
	}
	return PublicKey{}, invalid(ErrInvalidKeyID, "%q", kid)
}

// ValidateSignature verifies the JWS signature of raw with key using alg.
func ValidateSignature(raw string, key PublicKey, alg string) error {
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return invalid(ErrInvalidAlgorithm, "%q is not supported", alg)
	}

	verifyKey, err := key.cryptoKey()
	if err != nil {
		return err
	}

	idx := strings.LastIndex(raw, ".")
	if idx < 0 {
		return invalid(ErrMalformedToken, "signature segment is missing")
	}
	sig, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw[idx+1:], "="))
	if err != nil {
		return invalid(ErrInvalidSignature, "")
	}
	if err := method.Verify(raw[:idx], sig, verifyKey); err != nil {
		return invalid(ErrInvalidSignature, "")
	}
	return nil
}

// cryptoKey converts the JWK into a Go public key.
func (k PublicKey) cryptoKey() (any, error) {
	data, err := json.Marshal(k)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeAuthentication, "cognito: public key %q cannot be encoded", k.KID)
	}
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(data); err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeAuthentication, "cognito: public key %q is invalid", k.KID)
	}
	if !jwk.IsPublic() {
		return nil, sserr.Newf(sserr.CodeAuthentication, "cognito: key %q is not a public key", k.KID)
	}
	return jwk.Key, nil
}

// ValidateAccessTokenPayload checks the claims of an access token at now.
// Cognito access tokens carry the app client in client_id instead of aud.
func ValidateAccessTokenPayload(payload Payload, cfg *Config, now time.Time) error {
	return validateClaims(payload, cfg, now, func(p Payload) string {
		if aud := p.String("aud"); aud != "" {
			return aud
		}
		return p.String("client_id")
	})
}

// ValidateIDTokenPayload checks the claims of an ID token at now. ID
// tokens follow the access token rules, including the client_id fallback.
func ValidateIDTokenPayload(payload Payload, cfg *Config, now time.Time) error {
	return ValidateAccessTokenPayload(payload, cfg, now)
}

// validateClaims runs the claim checks in a fixed order: exp, iss, sub,
// audience, iat, jti. The first failure wins.
func validateClaims(p Payload, cfg *Config, now time.Time, audience func(Payload) string) error {
	exp, ok := p.Time("exp")
	if !ok {
		return invalid(ErrMissingExpiration, "")
	}
	if !exp.After(now) {
		return expired()
	}

	if iss := p.String("iss"); iss != cfg.Issuer {
		return invalid(ErrInvalidIssuer, "%q", iss)
	}

	if p.String("sub") == "" {
		return invalid(ErrMissingSubject, "")
	}

	if aud := audience(p); aud != cfg.ClientID {
		return invalid(ErrInvalidAudience, "%q", aud)
	}

	iat, ok := p.Time("iat")
	if !ok {
		return invalid(ErrMissingIssuedAt, "")
	}
	if iat.After(now) {
		return invalid(ErrInvalidIssuedAt, "issued in the future")
	}

	if p.String("jti") == "" {
		return invalid(ErrMissingJWTID, "")
	}
	return nil
}
