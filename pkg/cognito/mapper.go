package cognito

// MapAccessToken builds an AccessToken from a validated payload. Audience
// is taken from client_id, which is where Cognito puts the app client for
// access tokens. Missing claims map to zero values. The header is accepted
// so the signature matches [TokenStrategy.MapToken]; no field comes from it.
func MapAccessToken(raw string, payload Payload, _ Header) AccessToken {
	exp, _ := payload.Time("exp")
	iat, _ := payload.Time("iat")
	return AccessToken{
		Raw:      raw,
		Audience: payload.String("client_id"),
		ExpireAt: exp,
		IssuedAt: iat,
		Issuer:   payload.String("iss"),
		JWTID:    payload.String("jti"),
		Subject:  payload.String("sub"),
	}
}

// MapIDToken builds an IDToken from a validated payload, with Audience
// from aud and the email claim.
func MapIDToken(raw string, payload Payload, header Header) IDToken {
	tok := IDToken{
		AccessToken: MapAccessToken(raw, payload, header),
		Email:       payload.String("email"),
	}
	tok.Audience = payload.String("aud")
	return tok
}
