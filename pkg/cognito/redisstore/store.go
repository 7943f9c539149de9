// Package redisstore keeps a Cognito session in Redis, so tokens survive
// process restarts and can be shared by several app instances.
//
// Entries live under "<prefix>:<session id>:<key>" and hold JSON. Access
// and ID tokens expire together with their exp claim.
//
//	client, _ := redis.NewClient(ctx, redisCfg)
//	store := redisstore.New(client, sessionID)
//	auth, _ := cognito.NewAuthenticator(cfg, cognito.WithStore(store))
package redisstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/scalde/scalde-go/pkg/cognito"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "cognito"

// Commander is the part of *redis.Client (pkg/clients/redis) the store uses.
type Commander interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
}

// Option configures the store.
type Option func(*backend)

// WithPrefix replaces [DefaultPrefix].
func WithPrefix(prefix string) Option {
	return func(b *backend) { b.prefix = prefix }
}

// WithClock sets the time source used to compute token TTLs.
func WithClock(now func() time.Time) Option {
	return func(b *backend) { b.now = now }
}

// New returns a session store for sessionID backed by client.
func New(client Commander, sessionID string, opts ...Option) cognito.Store {
	b := &backend{client: client, sessionID: sessionID, prefix: DefaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return cognito.NewStore(b, b.now)
}

// NewSessionID returns a random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

type backend struct {
	client    Commander
	sessionID string
	prefix    string
	now       func() time.Time
}

var _ cognito.Backend = (*backend)(nil)

func (b *backend) key(k cognito.StoreKey) string {
	return b.prefix + ":" + b.sessionID + ":" + string(k)
}

func (b *backend) Get(ctx context.Context, key cognito.StoreKey) ([]byte, bool, error) {
	return b.client.Get(ctx, b.key(key))
}

func (b *backend) Set(ctx context.Context, key cognito.StoreKey, value []byte, ttl time.Duration) error {
	return b.client.Set(ctx, b.key(key), value, ttl)
}

func (b *backend) Delete(ctx context.Context, keys ...cognito.StoreKey) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = b.key(k)
	}
	_, err := b.client.Del(ctx, full...)
	return err
}

func (b *backend) Exists(ctx context.Context, key cognito.StoreKey) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(key))
	return n > 0, err
}
