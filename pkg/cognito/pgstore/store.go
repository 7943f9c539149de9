// Package pgstore keeps Cognito sessions in a PostgreSQL table. Each
// session is a set of rows keyed by (session_id, key) holding the JSON
// encoded entry and an optional expiry.
//
//	client, _ := postgres.NewClient(ctx, pgCfg)
//	sessions := pgstore.NewSessions(client)
//	if err := sessions.EnsureSchema(ctx); err != nil {
//	    return err
//	}
//	auth, _ := cognito.NewAuthenticator(cfg, cognito.WithStore(sessions.Store(sessionID)))
//
// Expired rows are invisible to reads; [Sessions.PurgeExpired] removes them
// and [Sessions.ActiveSessions] lists the sessions that still hold data.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scalde/scalde-go/pkg/cognito"
	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// DefaultTable is the session table name.
const DefaultTable = "cognito_sessions"

// DB is the part of *postgres.Client (pkg/clients/postgres) the store uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Option configures [Sessions].
type Option func(*Sessions)

// WithTable replaces [DefaultTable].
func WithTable(name string) Option {
	return func(s *Sessions) { s.table = name }
}

// WithClock sets the time source for expiry checks and TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *Sessions) { s.now = now }
}

// Sessions owns the session table.
type Sessions struct {
	db    DB
	table string
	now   func() time.Time
}

// NewSessions returns a Sessions over db.
func NewSessions(db DB, opts ...Option) *Sessions {
	s := &Sessions{db: db, table: DefaultTable, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sessions) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// EnsureSchema creates the table and its expiry index when missing. Both
// statements run in one transaction.
func (s *Sessions) EnsureSchema(ctx context.Context) error {
	t := s.ident()
	idx := pgx.Identifier{s.table + "_expires_at_idx"}.Sanitize()
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	session_id text NOT NULL,
	key text NOT NULL,
	value jsonb NOT NULL,
	expires_at timestamptz,
	updated_at timestamptz NOT NULL,
	PRIMARY KEY (session_id, key)
)`, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (expires_at)`, idx, t),
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return sserr.Wrap(err, sserr.CodeInternalDatabase, "pgstore: schema creation failed")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return sserr.Wrap(err, sserr.CodeInternalDatabase, "pgstore: schema creation failed")
	}
	return nil
}

// ActiveSessions returns the ids of sessions holding at least one
// unexpired entry, sorted.
func (s *Sessions) ActiveSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT DISTINCT session_id FROM %s WHERE expires_at IS NULL OR expires_at > $1 ORDER BY session_id`, s.ident()),
		s.now())
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, sserr.Wrap(err, sserr.CodeInternalDatabase, "pgstore: read failed")
	}
	return ids, nil
}

// PurgeExpired deletes expired rows of every session and returns how many
// were removed.
func (s *Sessions) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= $1`, s.ident()),
		s.now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Store returns the [cognito.Store] for one session.
func (s *Sessions) Store(sessionID string) cognito.Store {
	return cognito.NewStore(&backend{Sessions: s, sessionID: sessionID}, s.now)
}

type backend struct {
	*Sessions
	sessionID string
}

var _ cognito.Backend = (*backend)(nil)

func (b *backend) Get(ctx context.Context, key cognito.StoreKey) ([]byte, bool, error) {
	var value []byte
	err := b.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT value FROM %s WHERE session_id = $1 AND key = $2 AND (expires_at IS NULL OR expires_at > $3)`, b.ident()),
		b.sessionID, string(key), b.now()).Scan(&value)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, sserr.Wrap(err, sserr.CodeInternalDatabase, "pgstore: read failed")
	}
	return value, true, nil
}

func (b *backend) Set(ctx context.Context, key cognito.StoreKey, value []byte, ttl time.Duration) error {
	now := b.now()
	var expiresAt any
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}
	_, err := b.db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (session_id, key, value, expires_at, updated_at) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id, key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`, b.ident()),
		b.sessionID, string(key), value, expiresAt, now)
	return err
}

func (b *backend) Delete(ctx context.Context, keys ...cognito.StoreKey) error {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	_, err := b.db.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1 AND key = ANY($2)`, b.ident()),
		b.sessionID, names)
	return err
}

func (b *backend) Exists(ctx context.Context, key cognito.StoreKey) (bool, error) {
	var found bool
	err := b.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE session_id = $1 AND key = $2 AND (expires_at IS NULL OR expires_at > $3))`, b.ident()),
		b.sessionID, string(key), b.now()).Scan(&found)
	if err != nil {
		return false, sserr.Wrap(err, sserr.CodeInternalDatabase, "pgstore: read failed")
	}
	return found, nil
}
