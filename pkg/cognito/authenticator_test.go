package cognito

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/scalde/scalde-go/internal/testutil"
	"github.com/scalde/scalde-go/internal/testutil/fixtures"
	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// ===========================================================================
// Construction
// ===========================================================================

func TestNewAuthenticator_RejectsInvalidConfig(t *testing.T) {
	_, err := NewAuthenticator(Config{URL: "https://auth.example.test"})
	testutil.RequireErrorCode(t, err, sserr.CodeValidationRequired)
}

func TestAuthenticator_AuthorizationURL(t *testing.T) {
	s := newSession(t, false)
	assert.Equal(t,
		"https://auth.example.test/oauth2/authorize?response_type=code&client_id=test-client-id"+
			"&redirect_uri=https%3A%2F%2Fapp.example.test%2Fcallback",
		s.auth.AuthorizationURL())
}

// ===========================================================================
// Tokens
// ===========================================================================

func TestTokens_ExchangesCodeAndStoresBundle(t *testing.T) {
	s := newSession(t, true)
	resp := s.tokenResponse(t)
	s.provider.On("FetchTokens", mock.Anything, fixtures.AuthCode).Return(resp, nil).Once()

	tokens, err := s.auth.Tokens(context.Background(), fixtures.AuthCode, s.keys)
	require.NoError(t, err)

	require.NotNil(t, tokens.AccessToken)
	require.NotNil(t, tokens.IDToken)
	require.NotNil(t, tokens.RefreshToken)
	assert.Equal(t, resp.AccessToken, tokens.AccessToken.Raw)
	assert.Equal(t, resp.IDToken, tokens.IDToken.Raw)
	assert.Equal(t, fixtures.Email, tokens.IDToken.Email)
	assert.Equal(t, "opaque-refresh-token", tokens.RefreshToken.Raw)

	stored, ok, err := s.store.AccessToken(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, *tokens.AccessToken, stored)
	s.provider.AssertExpectations(t)
}

func TestTokens_CachedBundleIsReturnedWithoutExchange(t *testing.T) {
	s := newSession(t, true)
	s.provider.On("FetchTokens", mock.Anything, fixtures.AuthCode).Return(s.tokenResponse(t), nil).Once()

	first, err := s.auth.Tokens(context.Background(), fixtures.AuthCode, s.keys)
	require.NoError(t, err)

	second, err := s.auth.Tokens(context.Background(), "another-code", s.keys)
	require.NoError(t, err)
	third, err := s.auth.Tokens(context.Background(), "", s.keys)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	s.provider.AssertNumberOfCalls(t, "FetchTokens", 1)
}

func TestTokens_CachedRefreshTokenIsReturnedVerbatim(t *testing.T) {
	s := newSession(t, true)
	ctx := context.Background()
	access := AccessToken{Raw: "cached", ExpireAt: fixtures.Now.Add(time.Minute)}
	require.NoError(t, s.store.SetAccessToken(ctx, access))
	require.NoError(t, s.store.SetRefreshToken(ctx, RefreshToken{Raw: "stale-but-kept"}))

	tokens, err := s.auth.Tokens(ctx, fixtures.AuthCode, s.keys)
	require.NoError(t, err)

	assert.Equal(t, "cached", tokens.AccessToken.Raw)
	assert.Nil(t, tokens.IDToken)
	assert.Equal(t, "stale-but-kept", tokens.RefreshToken.Raw)
	s.provider.AssertNotCalled(t, "FetchTokens", mock.Anything, mock.Anything)
}

func TestTokens_ExpiredCacheFallsThroughToExchange(t *testing.T) {
	s := newSession(t, true)
	ctx := context.Background()
	require.NoError(t, s.store.SetAccessToken(ctx, AccessToken{Raw: "old", ExpireAt: fixtures.Now}))
	s.provider.On("FetchTokens", mock.Anything, fixtures.AuthCode).Return(s.tokenResponse(t), nil).Once()

	tokens, err := s.auth.Tokens(ctx, fixtures.AuthCode, s.keys)
	require.NoError(t, err)
	assert.NotEqual(t, "old", tokens.AccessToken.Raw)
}

func TestTokens_NoCodeAndNoCacheIsEmpty(t *testing.T) {
	for name, withStore := range map[string]bool{"with store": true, "without store": false} {
		t.Run(name, func(t *testing.T) {
			s := newSession(t, withStore)
			tokens, err := s.auth.Tokens(context.Background(), "", s.keys)
			require.NoError(t, err)
			assert.True(t, tokens.IsEmpty())
			s.provider.AssertNotCalled(t, "FetchTokens", mock.Anything, mock.Anything)
		})
	}
}

func TestTokens_RequiresKeysOrStore(t *testing.T) {
	s := newSession(t, false)
	_, err := s.auth.Tokens(context.Background(), fixtures.AuthCode, nil)
	testutil.RequireErrorCode(t, err, sserr.CodeValidation)
}

func TestTokens_UsesStoredPublicKeys(t *testing.T) {
	s := newSession(t, true)
	s.provider.On("FetchPublicKeys", mock.Anything).Return(s.keys, nil).Once()
	s.provider.On("FetchTokens", mock.Anything, fixtures.AuthCode).Return(s.tokenResponse(t), nil).Once()

	_, err := s.auth.Tokens(context.Background(), fixtures.AuthCode, nil)
	require.NoError(t, err)

	stored, ok, err := s.store.PublicKeys(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, s.keys, stored)
	s.provider.AssertExpectations(t)
}

func TestTokens_ProviderErrorsPropagate(t *testing.T) {
	s := newSession(t, true)
	s.provider.On("FetchTokens", mock.Anything, fixtures.AuthCode).
		Return(nil, sserr.Retryable("cognito: failed to fetch tokens: invalid_grant")).Once()

	tokens, err := s.auth.Tokens(context.Background(), fixtures.AuthCode, s.keys)
	assert.True(t, sserr.IsRetryable(err))
	assert.True(t, tokens.IsEmpty())
}

func TestTokens_InvalidTokensAreNotStored(t *testing.T) {
	s := newSession(t, true)
	claims := fixtures.AccessClaims(fixtures.Now)
	claims["client_id"] = "someone-else"
	resp := s.tokenResponse(t)
	resp.AccessToken = s.key.Sign(t, claims, nil)
	s.provider.On("FetchTokens", mock.Anything, fixtures.AuthCode).Return(resp, nil).Once()

	_, err := s.auth.Tokens(context.Background(), fixtures.AuthCode, s.keys)
	assert.ErrorIs(t, err, ErrInvalidAudience)

	ok, err := s.store.Contains(context.Background(), KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokens_ExpiredIDTokenFails(t *testing.T) {
	s := newSession(t, false)
	claims := fixtures.IDClaims(fixtures.Now)
	claims["exp"] = fixtures.Now.Add(-time.Minute).Unix()
	resp := s.tokenResponse(t)
	resp.IDToken = s.key.Sign(t, claims, nil)
	s.provider.On("FetchTokens", mock.Anything, fixtures.AuthCode).Return(resp, nil).Once()

	_, err := s.auth.Tokens(context.Background(), fixtures.AuthCode, s.keys)
	assert.True(t, sserr.IsTokenExpired(err))
}

func TestRefreshTokens_Unsupported(t *testing.T) {
	s := newSession(t, true)
	_, err := s.auth.RefreshTokens(context.Background())
	testutil.RequireErrorCode(t, err, sserr.CodeUnsupported)
	assert.ErrorIs(t, err, ErrUnsupported)
}

// ===========================================================================
// PublicKeys
// ===========================================================================

func TestPublicKeys_FetchedOnceThenCached(t *testing.T) {
	s := newSession(t, true)
	s.provider.On("FetchPublicKeys", mock.Anything).Return(s.keys, nil).Once()

	first, err := s.auth.PublicKeys(context.Background())
	require.NoError(t, err)
	second, err := s.auth.PublicKeys(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	s.provider.AssertNumberOfCalls(t, "FetchPublicKeys", 1)
}

func TestPublicKeys_WithoutStoreAlwaysFetches(t *testing.T) {
	s := newSession(t, false)
	s.provider.On("FetchPublicKeys", mock.Anything).Return(s.keys, nil)

	for range 2 {
		_, err := s.auth.PublicKeys(context.Background())
		require.NoError(t, err)
	}
	s.provider.AssertNumberOfCalls(t, "FetchPublicKeys", 2)
}

func TestPublicKeys_Failures(t *testing.T) {
	t.Run("empty key set", func(t *testing.T) {
		s := newSession(t, true)
		s.provider.On("FetchPublicKeys", mock.Anything).Return([]PublicKey{}, nil)
		_, err := s.auth.PublicKeys(context.Background())
		testutil.RequireErrorCode(t, err, sserr.CodeAuthentication)
		assert.Contains(t, err.Error(), "empty response")
	})

	t.Run("transport error", func(t *testing.T) {
		s := newSession(t, true)
		s.provider.On("FetchPublicKeys", mock.Anything).Return(nil, errors.New("connection refused"))
		_, err := s.auth.PublicKeys(context.Background())
		testutil.RequireErrorCode(t, err, sserr.CodeAuthentication)

		ok, err := s.store.Contains(context.Background(), KeyPublicKeys)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

// ===========================================================================
// Logout
// ===========================================================================

func TestLogout_ClearsTokensButKeepsPublicKeys(t *testing.T) {
	s := newSession(t, true)
	ctx := context.Background()
	s.provider.On("FetchPublicKeys", mock.Anything).Return(s.keys, nil).Once()
	s.provider.On("FetchTokens", mock.Anything, fixtures.AuthCode).Return(s.tokenResponse(t), nil).Once()
	s.provider.On("SendLogout", mock.Anything).Return(nil).Once()

	_, err := s.auth.Tokens(ctx, fixtures.AuthCode, nil)
	require.NoError(t, err)
	require.NoError(t, s.auth.Logout(ctx))

	for _, key := range []StoreKey{KeyAccessToken, KeyIDToken, KeyRefreshToken} {
		ok, err := s.store.Contains(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
	ok, err := s.store.Contains(ctx, KeyPublicKeys)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogout_ClearsTokensWhenRequestFails(t *testing.T) {
	s := newSession(t, true)
	ctx := context.Background()
	require.NoError(t, s.store.SetAccessToken(ctx, AccessToken{Raw: "a", ExpireAt: fixtures.Now.Add(time.Hour)}))
	s.provider.On("SendLogout", mock.Anything).Return(errors.New("connection reset")).Once()

	err := s.auth.Logout(ctx)
	testutil.RequireErrorCode(t, err, sserr.CodeAuthentication)

	ok, err := s.store.Contains(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

// ===========================================================================
// Tracing
// ===========================================================================

func TestTokens_RecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	s := newSession(t, false)
	_, err := s.auth.Tokens(context.Background(), "", s.keys)
	require.NoError(t, err)

	var names []string
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}
	assert.Contains(t, names, "cognito.Tokens")
}
