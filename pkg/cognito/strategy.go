package cognito

import "time"

// TokenStrategy pairs the claim validation and mapping of one token kind.
type TokenStrategy[T any] interface {
	ValidatePayload(payload Payload, cfg *Config, now time.Time) error
	MapToken(raw string, payload Payload, header Header) T
}

// AccessTokenStrategy validates and maps access tokens.
type AccessTokenStrategy struct{}

func (AccessTokenStrategy) ValidatePayload(payload Payload, cfg *Config, now time.Time) error {
	return ValidateAccessTokenPayload(payload, cfg, now)
}

func (AccessTokenStrategy) MapToken(raw string, payload Payload, header Header) AccessToken {
	return MapAccessToken(raw, payload, header)
}

// IDTokenStrategy validates and maps ID tokens.
type IDTokenStrategy struct{}

func (IDTokenStrategy) ValidatePayload(payload Payload, cfg *Config, now time.Time) error {
	return ValidateIDTokenPayload(payload, cfg, now)
}

func (IDTokenStrategy) MapToken(raw string, payload Payload, header Header) IDToken {
	return MapIDToken(raw, payload, header)
}

// Parse runs the full validation pipeline on raw and maps the result:
// structure, algorithm, key lookup, signature, then claims at now. No
// claim is inspected before the signature has been verified.
func Parse[T any](raw string, keys []PublicKey, strategy TokenStrategy[T], cfg *Config, now time.Time) (T, error) {
	var zero T

	if err := ValidateRawToken(raw); err != nil {
		return zero, err
	}
	header, payload, err := ParseToken(raw)
	if err != nil {
		return zero, err
	}
	if err := ValidateHeader(header, cfg); err != nil {
		return zero, err
	}
	key, err := SelectKey(header, keys)
	if err != nil {
		return zero, err
	}
	if err := ValidateSignature(raw, key, cfg.Algorithm); err != nil {
		return zero, err
	}
	if err := strategy.ValidatePayload(payload, cfg, now); err != nil {
		return zero, err
	}
	return strategy.MapToken(raw, payload, header), nil
}
