package cognito

import "time"

// PublicKey is one entry of the pool's JSON Web Key Set. RSA keys carry
// N and E; the EC fields are kept so pools signing with ES256 work too.
type PublicKey struct {
	KID string `json:"kid"`
	KTY string `json:"kty"`
	Alg string `json:"alg,omitempty"`
	Use string `json:"use,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// AccessToken is a validated Cognito access token. Raw is the compact
// JWT exactly as received.
type AccessToken struct {
	Raw      string    `json:"raw"`
	Audience string    `json:"audience"`
	ExpireAt time.Time `json:"expire_at"`
	IssuedAt time.Time `json:"issued_at"`
	Issuer   string    `json:"issuer"`
	JWTID    string    `json:"jwt_id"`
	Subject  string    `json:"subject"`
}

// Expired reports whether the token is expired at now.
func (t AccessToken) Expired(now time.Time) bool {
	return !t.ExpireAt.After(now)
}

// IDToken is a validated Cognito ID token. Audience holds the aud claim.
type IDToken struct {
	AccessToken
	Email string `json:"email"`
}

// RefreshToken is the opaque refresh token returned by the token
// endpoint. Cognito does not issue it as a JWT, so it is never validated.
type RefreshToken struct {
	Raw string `json:"raw"`
}

// Tokens is the bundle returned by [Authenticator.Tokens]. A nil field
// means the token is not available; a bundle with all fields nil is the
// empty bundle.
type Tokens struct {
	AccessToken  *AccessToken
	IDToken      *IDToken
	RefreshToken *RefreshToken
}

// IsEmpty reports whether the bundle carries no token at all.
func (t Tokens) IsEmpty() bool {
	return t.AccessToken == nil && t.IDToken == nil && t.RefreshToken == nil
}
