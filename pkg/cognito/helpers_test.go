package cognito

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scalde/scalde-go/internal/testutil"
	"github.com/scalde/scalde-go/internal/testutil/fixtures"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := Config{
		AWSRegion:    fixtures.Region,
		UserPoolID:   fixtures.UserPoolID,
		ClientID:     fixtures.ClientID,
		ClientSecret: fixtures.ClientSecret,
		URL:          "https://auth.example.test",
		RedirectURI:  fixtures.RedirectURI,
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func publicKeyOf(t *testing.T, k *testutil.SigningKey) PublicKey {
	t.Helper()
	var pk PublicKey
	require.NoError(t, json.Unmarshal(k.JWKJSON(t), &pk))
	return pk
}

func mustSegment(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func fixedClock() time.Time { return fixtures.Now }

// mockProvider is a testify mock of [Provider].
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) FetchTokens(ctx context.Context, code string) (*TokenResponse, error) {
	args := m.Called(ctx, code)
	resp, _ := args.Get(0).(*TokenResponse)
	return resp, args.Error(1)
}

func (m *mockProvider) FetchPublicKeys(ctx context.Context) ([]PublicKey, error) {
	args := m.Called(ctx)
	keys, _ := args.Get(0).([]PublicKey)
	return keys, args.Error(1)
}

func (m *mockProvider) SendLogout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// session bundles what an authenticator test needs: a signing key, its
// JWKS entry and a store sharing the fixed clock.
type session struct {
	key      *testutil.SigningKey
	keys     []PublicKey
	store    Store
	provider *mockProvider
	auth     *Authenticator
}

func newSession(t *testing.T, withStore bool) *session {
	t.Helper()
	s := &session{
		key:      testutil.NewSigningKey(t, fixtures.KeyID),
		provider: &mockProvider{},
	}
	s.keys = []PublicKey{publicKeyOf(t, s.key)}

	opts := []Option{WithProvider(s.provider), WithClock(fixedClock)}
	if withStore {
		s.store = NewStore(NewMemoryBackend(fixedClock), fixedClock)
		opts = append(opts, WithStore(s.store))
	}

	auth, err := NewAuthenticator(testConfig(t), opts...)
	require.NoError(t, err)
	s.auth = auth
	return s
}

func (s *session) tokenResponse(t *testing.T) *TokenResponse {
	t.Helper()
	return &TokenResponse{
		AccessToken:  s.key.Sign(t, fixtures.AccessClaims(fixtures.Now), nil),
		IDToken:      s.key.Sign(t, fixtures.IDClaims(fixtures.Now), nil),
		RefreshToken: "opaque-refresh-token",
	}
}
