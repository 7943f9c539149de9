package cognito

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	sserr "github.com/scalde/scalde-go/pkg/errors"
	"github.com/scalde/scalde-go/pkg/secret"
)

// Secret is the redacting string type used for the client secret.
type Secret = secret.String

// Default values applied by [Config.Validate].
const (
	DefaultAlgorithm   = "RS256"
	DefaultHTTPTimeout = 10 * time.Second
)

// Config describes a Cognito user pool and the app client that talks to
// it. It is normally loaded with pkg/config:
//
//	cfg := config.MustLoad[cognito.Config](config.New().WithDotEnv(".env"))
type Config struct {
	// AWSRegion and UserPoolID identify the pool. They are only used to
	// derive Issuer when it is not set explicitly.
	AWSRegion  string `env:"AWS_REGION" yaml:"aws_region" json:"aws_region"`
	UserPoolID string `env:"COGNITO_USER_POOL_ID" yaml:"user_pool_id" json:"user_pool_id"`

	// ClientID is the app client id. Tokens must carry it in aud (ID
	// tokens) or client_id (access tokens).
	ClientID string `env:"COGNITO_GOOGLE_CLIENT_ID" yaml:"client_id" json:"client_id" required:"true"`

	// ClientSecret authenticates the app client at the token endpoint.
	ClientSecret Secret `env:"COGNITO_GOOGLE_CLIENT_SECRET" yaml:"client_secret" json:"client_secret"`

	// URL is the hosted UI domain, e.g. https://myapp.auth.eu-west-1.amazoncognito.com.
	URL string `env:"COGNITO_URL" yaml:"url" json:"url" required:"true"`

	// Issuer is the expected iss claim and the base of the JWKS URL.
	Issuer string `env:"COGNITO_ISSUER" yaml:"issuer" json:"issuer"`

	// Algorithm is the only JWS algorithm accepted in token headers.
	Algorithm string `env:"ALGORITHM" envDefault:"RS256" yaml:"algorithm" json:"algorithm"`

	// RedirectURI is the OAuth2 callback registered with the app client.
	RedirectURI string `env:"REDIRECT_URI" yaml:"redirect_uri" json:"redirect_uri" required:"true"`

	// HTTPTimeout bounds every call to the pool's endpoints.
	HTTPTimeout time.Duration `env:"COGNITO_HTTP_TIMEOUT" envDefault:"10s" yaml:"http_timeout" json:"http_timeout"`
}

// Validate applies defaults and checks that the configuration is usable.
// An empty Issuer is derived from AWSRegion and UserPoolID.
func (c *Config) Validate() error {
	if c.Algorithm == "" {
		c.Algorithm = DefaultAlgorithm
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Issuer == "" && c.AWSRegion != "" && c.UserPoolID != "" {
		c.Issuer = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.AWSRegion, c.UserPoolID)
	}
	c.Issuer = strings.TrimRight(c.Issuer, "/")

	switch {
	case c.ClientID == "":
		return sserr.New(sserr.CodeValidationRequired, "cognito: client id is required")
	case c.URL == "":
		return sserr.New(sserr.CodeValidationRequired, "cognito: url is required")
	case c.RedirectURI == "":
		return sserr.New(sserr.CodeValidationRequired, "cognito: redirect uri is required")
	case c.Issuer == "":
		return sserr.New(sserr.CodeValidationRequired,
			"cognito: issuer is required (set it, or set both region and user pool id)")
	}

	for name, raw := range map[string]string{"url": c.URL, "issuer": c.Issuer, "redirect uri": c.RedirectURI} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return sserr.Newf(sserr.CodeValidationFormat, "cognito: %s %q is not an absolute URL", name, raw)
		}
	}
	return nil
}

// TokenURL is the pool's OAuth2 token endpoint.
func (c *Config) TokenURL() string { return c.URL + "/oauth2/token" }

// JWKSURL is where the pool publishes its signing keys.
func (c *Config) JWKSURL() string { return c.Issuer + "/.well-known/jwks.json" }

// AuthorizeURL returns the hosted UI login URL for the authorization code
// flow.
func (c *Config) AuthorizeURL() string {
	return fmt.Sprintf("%s/oauth2/authorize?response_type=code&client_id=%s&redirect_uri=%s",
		c.URL, url.QueryEscape(c.ClientID), url.QueryEscape(c.RedirectURI))
}

// LogoutURL returns the hosted UI logout URL.
func (c *Config) LogoutURL() string {
	return fmt.Sprintf("%s/logout?client_id=%s&redirect_uri=%s&response_type=code",
		c.URL, url.QueryEscape(c.ClientID), url.QueryEscape(c.RedirectURI))
}
