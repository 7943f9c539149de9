package cognito

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Header is the decoded JOSE header of a token.
type Header map[string]any

// Alg returns the alg header, or "" when absent.
func (h Header) Alg() string { return stringValue(h["alg"]) }

// KID returns the kid header, or "" when absent.
func (h Header) KID() string { return stringValue(h["kid"]) }

// Payload is the decoded claim set of a token. Numbers are kept as
// json.Number so integer timestamps survive decoding exactly.
type Payload map[string]any

// String returns claim as a string, or "" when it is absent or not a
// string.
func (p Payload) String(claim string) string { return stringValue(p[claim]) }

// Time returns a NumericDate claim as a UTC time. Zero or absent values
// report false, as do values that are not numbers or do not fit in
// int64 seconds.
func (p Payload) Time(claim string) (time.Time, bool) {
	var secs float64
	switch v := p[claim].(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		secs = f
	case float64:
		secs = v
	case int64:
		secs = float64(v)
	case int:
		secs = float64(v)
	default:
		return time.Time{}, false
	}
	if secs == 0 || math.IsNaN(secs) || math.IsInf(secs, 0) ||
		secs < math.MinInt64 || secs >= math.MaxInt64 {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
}

var unverifiedParser = jwt.NewParser(jwt.WithPaddingAllowed())

// ParseToken decodes the header and payload of raw without verifying the
// signature. It only fails when a segment cannot be decoded; structural
// and cryptographic checks belong to the validators.
func ParseToken(raw string) (Header, Payload, error) {
	token, parts, err := unverifiedParser.ParseUnverified(raw, jwt.MapClaims{})
	// An unknown alg is reported by the validator, not the parser.
	if err != nil && !(errors.Is(err, jwt.ErrTokenUnverifiable) && token != nil && token.Header != nil) {
		return nil, nil, invalid(ErrMalformedToken, "header could not be decoded: %v", err)
	}

	payload, err := decodePayload(parts[1])
	if err != nil {
		return nil, nil, invalid(ErrMalformedToken, "payload could not be decoded: %v", err)
	}
	return Header(token.Header), payload, nil
}

// decodePayload reads the claims segment with json.Number preserved.
// jwt.MapClaims decodes numbers as float64, which loses precision on
// large integers.
func decodePayload(segment string) (Payload, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(segment, "="))
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload Payload
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("claims are not a JSON object")
	}
	return payload, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
