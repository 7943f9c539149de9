package pgstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scalde/scalde-go/internal/testutil"
	"github.com/scalde/scalde-go/internal/testutil/fixtures"
	"github.com/scalde/scalde-go/pkg/cognito"
	sserr "github.com/scalde/scalde-go/pkg/errors"
)

func fixedClock() time.Time { return fixtures.Now }

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

// ===========================================================================
// Schema
// ===========================================================================

func TestSessions_EnsureSchema(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "auth_sessions"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS "auth_sessions_expires_at_idx" ON "auth_sessions"`).
		WillReturnResult(pgxmock.NewResult("CREATE INDEX", 0))
	mock.ExpectCommit()

	require.NoError(t, NewSessions(mock, WithTable("auth_sessions")).EnsureSchema(context.Background()))
}

func TestSessions_EnsureSchema_RollsBackOnError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := NewSessions(mock).EnsureSchema(context.Background())
	testutil.RequireErrorCode(t, err, sserr.CodeInternalDatabase)
	assert.ErrorContains(t, err, "permission denied")
}

func TestSessions_EnsureSchema_BeginError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	assert.Error(t, NewSessions(mock).EnsureSchema(context.Background()))
}

func TestSessions_ActiveSessions(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT DISTINCT session_id FROM "cognito_sessions" WHERE expires_at IS NULL OR expires_at > \$1`).
		WithArgs(fixtures.Now).
		WillReturnRows(pgxmock.NewRows([]string{"session_id"}).AddRow("s1").AddRow("s2"))

	ids, err := NewSessions(mock, WithClock(fixedClock)).ActiveSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
}

func TestSessions_ActiveSessions_Error(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT DISTINCT session_id`).WillReturnError(errors.New("relation does not exist"))

	_, err := NewSessions(mock).ActiveSessions(context.Background())
	assert.ErrorContains(t, err, "relation does not exist")
}

func TestSessions_PurgeExpired(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM "cognito_sessions" WHERE expires_at IS NOT NULL`).
		WithArgs(fixtures.Now).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := NewSessions(mock, WithClock(fixedClock)).PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

// ===========================================================================
// Store
// ===========================================================================

func TestStore_SetAccessTokenUpsertsWithExpiry(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO "cognito_sessions" .* ON CONFLICT \(session_id, key\) DO UPDATE`).
		WithArgs("s1", "access_token", pgxmock.AnyArg(), fixtures.Now.Add(time.Hour), fixtures.Now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewSessions(mock, WithClock(fixedClock)).Store("s1")
	err := store.SetAccessToken(context.Background(), cognito.AccessToken{
		Raw:      "a.b.c",
		ExpireAt: fixtures.Now.Add(time.Hour),
	})
	require.NoError(t, err)
}

func TestStore_RefreshTokenHasNoExpiry(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO "cognito_sessions"`).
		WithArgs("s1", "refresh_token", []byte(`{"raw":"r"}`), nil, fixtures.Now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewSessions(mock, WithClock(fixedClock)).Store("s1")
	require.NoError(t, store.SetRefreshToken(context.Background(), cognito.RefreshToken{Raw: "r"}))
}

func TestStore_GetHitAndMiss(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT value FROM "cognito_sessions" WHERE session_id = \$1 AND key = \$2`).
		WithArgs("s1", "public_keys", fixtures.Now).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`[{"kid":"k1","kty":"RSA"}]`)))
	mock.ExpectQuery(`SELECT value FROM "cognito_sessions"`).
		WithArgs("s1", "id_token", fixtures.Now).
		WillReturnError(pgx.ErrNoRows)

	store := NewSessions(mock, WithClock(fixedClock)).Store("s1")
	keys, ok, err := store.PublicKeys(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []cognito.PublicKey{{KID: "k1", KTY: "RSA"}}, keys)

	_, ok, err = store.IDToken(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_GetError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT value`).WillReturnError(errors.New("connection reset"))

	_, _, err := NewSessions(mock).Store("s1").AccessToken(context.Background())
	testutil.RequireErrorCode(t, err, sserr.CodeInternalDatabase)
}

func TestStore_Contains(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("s1", "access_token", fixtures.Now).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewSessions(mock, WithClock(fixedClock)).Store("s1").Contains(context.Background(), cognito.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_DeleteUsesAnyArray(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM "cognito_sessions" WHERE session_id = \$1 AND key = ANY\(\$2\)`).
		WithArgs("s1", []string{"access_token", "id_token"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	err := NewSessions(mock).Store("s1").Delete(context.Background(), cognito.KeyAccessToken, cognito.KeyIDToken)
	require.NoError(t, err)
}

func TestSessions_TableNameIsQuoted(t *testing.T) {
	s := NewSessions(nil, WithTable(`odd"name`))
	assert.Equal(t, `"odd""name"`, s.ident())
}
