package cognito

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scalde/scalde-go/internal/testutil"
	"github.com/scalde/scalde-go/internal/testutil/fixtures"
	"github.com/scalde/scalde-go/pkg/config"
	sserr "github.com/scalde/scalde-go/pkg/errors"
)

func TestConfig_ValidateAppliesDefaults(t *testing.T) {
	cfg := Config{
		AWSRegion:   fixtures.Region,
		UserPoolID:  fixtures.UserPoolID,
		ClientID:    fixtures.ClientID,
		URL:         "https://auth.example.test/",
		RedirectURI: fixtures.RedirectURI,
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, fixtures.Issuer, cfg.Issuer)
	assert.Equal(t, DefaultAlgorithm, cfg.Algorithm)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, "https://auth.example.test", cfg.URL)
	assert.Equal(t, fixtures.Issuer+"/.well-known/jwks.json", cfg.JWKSURL())
	assert.Equal(t, "https://auth.example.test/oauth2/token", cfg.TokenURL())
}

func TestConfig_ExplicitIssuerWins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Issuer = "https://issuer.example.test/"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://issuer.example.test", cfg.Issuer)
}

func TestConfig_ValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   sserr.Code
	}{
		{"no client id", func(c *Config) { c.ClientID = "" }, sserr.CodeValidationRequired},
		{"no url", func(c *Config) { c.URL = "" }, sserr.CodeValidationRequired},
		{"no redirect", func(c *Config) { c.RedirectURI = "" }, sserr.CodeValidationRequired},
		{"no issuer source", func(c *Config) { c.Issuer, c.AWSRegion = "", "" }, sserr.CodeValidationRequired},
		{"relative url", func(c *Config) { c.URL = "auth.example.test" }, sserr.CodeValidationFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			testutil.RequireErrorCode(t, cfg.Validate(), tt.code)
		})
	}
}

func TestConfig_SecretIsRedacted(t *testing.T) {
	cfg := testConfig(t)
	assert.NotContains(t, fmt.Sprintf("%v %+v %#v", cfg, cfg, cfg), fixtures.ClientSecret)
	testutil.AssertJSONNotContains(t, cfg, fixtures.ClientSecret)
	assert.Equal(t, fixtures.ClientSecret, cfg.ClientSecret.Value())
}

func TestConfig_LoadFromEnvironment(t *testing.T) {
	testutil.SetEnv(t, "AWS_REGION", fixtures.Region)
	testutil.SetEnv(t, "COGNITO_USER_POOL_ID", fixtures.UserPoolID)
	testutil.SetEnv(t, "COGNITO_GOOGLE_CLIENT_ID", fixtures.ClientID)
	testutil.SetEnv(t, "COGNITO_GOOGLE_CLIENT_SECRET", fixtures.ClientSecret)
	testutil.SetEnv(t, "COGNITO_URL", "https://auth.example.test")
	testutil.SetEnv(t, "REDIRECT_URI", fixtures.RedirectURI)
	testutil.SetEnv(t, "COGNITO_HTTP_TIMEOUT", "3s")
	testutil.UnsetEnv(t, "COGNITO_ISSUER")
	testutil.UnsetEnv(t, "ALGORITHM")

	var cfg Config
	require.NoError(t, config.New().Load(&cfg))

	assert.Equal(t, fixtures.Issuer, cfg.Issuer)
	assert.Equal(t, "RS256", cfg.Algorithm)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, Secret(fixtures.ClientSecret), cfg.ClientSecret)
}
