package cognito

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// StoreKey names one entry of a session store.
type StoreKey string

// Keys used by [Authenticator].
const (
	KeyAccessToken  StoreKey = "access_token"
	KeyIDToken      StoreKey = "id_token"
	KeyRefreshToken StoreKey = "refresh_token"
	KeyPublicKeys   StoreKey = "public_keys"
)

// tokenKeys are cleared on logout. Public keys survive.
var tokenKeys = []StoreKey{KeyAccessToken, KeyIDToken, KeyRefreshToken}

// Store persists the tokens and JWKS of one user session. Getters report
// false when the entry is absent. A Store is owned by a single session;
// implementations must still be safe for concurrent use.
type Store interface {
	AccessToken(ctx context.Context) (AccessToken, bool, error)
	SetAccessToken(ctx context.Context, tok AccessToken) error
	IDToken(ctx context.Context) (IDToken, bool, error)
	SetIDToken(ctx context.Context, tok IDToken) error
	RefreshToken(ctx context.Context) (RefreshToken, bool, error)
	SetRefreshToken(ctx context.Context, tok RefreshToken) error
	PublicKeys(ctx context.Context) ([]PublicKey, bool, error)
	SetPublicKeys(ctx context.Context, keys []PublicKey) error
	Contains(ctx context.Context, key StoreKey) (bool, error)
	Delete(ctx context.Context, keys ...StoreKey) error
}

// Backend is raw byte storage keyed by [StoreKey]. A ttl of zero means
// the entry never expires. [NewStore] layers the typed [Store] API on top,
// so a new storage engine only has to implement these four methods.
type Backend interface {
	Get(ctx context.Context, key StoreKey) ([]byte, bool, error)
	Set(ctx context.Context, key StoreKey, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...StoreKey) error
	Exists(ctx context.Context, key StoreKey) (bool, error)
}

// NewStore returns a Store that JSON-encodes values into b. Tokens are
// written with a TTL equal to their remaining lifetime, measured with now.
func NewStore(b Backend, now func() time.Time) Store {
	if now == nil {
		now = time.Now
	}
	return &codecStore{backend: b, now: now}
}

type codecStore struct {
	backend Backend
	now     func() time.Time
}

func (s *codecStore) AccessToken(ctx context.Context) (AccessToken, bool, error) {
	var tok AccessToken
	ok, err := s.get(ctx, KeyAccessToken, &tok)
	return tok, ok, err
}

func (s *codecStore) SetAccessToken(ctx context.Context, tok AccessToken) error {
	return s.set(ctx, KeyAccessToken, tok, s.ttl(tok.ExpireAt))
}

func (s *codecStore) IDToken(ctx context.Context) (IDToken, bool, error) {
	var tok IDToken
	ok, err := s.get(ctx, KeyIDToken, &tok)
	return tok, ok, err
}

func (s *codecStore) SetIDToken(ctx context.Context, tok IDToken) error {
	return s.set(ctx, KeyIDToken, tok, s.ttl(tok.ExpireAt))
}

func (s *codecStore) RefreshToken(ctx context.Context) (RefreshToken, bool, error) {
	var tok RefreshToken
	ok, err := s.get(ctx, KeyRefreshToken, &tok)
	return tok, ok, err
}

func (s *codecStore) SetRefreshToken(ctx context.Context, tok RefreshToken) error {
	return s.set(ctx, KeyRefreshToken, tok, 0)
}

func (s *codecStore) PublicKeys(ctx context.Context) ([]PublicKey, bool, error) {
	var keys []PublicKey
	ok, err := s.get(ctx, KeyPublicKeys, &keys)
	return keys, ok, err
}

func (s *codecStore) SetPublicKeys(ctx context.Context, keys []PublicKey) error {
	return s.set(ctx, KeyPublicKeys, keys, 0)
}

func (s *codecStore) Contains(ctx context.Context, key StoreKey) (bool, error) {
	return s.backend.Exists(ctx, key)
}

func (s *codecStore) Delete(ctx context.Context, keys ...StoreKey) error {
	if len(keys) == 0 {
		return nil
	}
	return s.backend.Delete(ctx, keys...)
}

// ttl is the remaining lifetime of a token expiring at exp. Already
// expired tokens get a one second TTL so the backend drops them soon
// instead of keeping them forever.
func (s *codecStore) ttl(exp time.Time) time.Duration {
	if exp.IsZero() {
		return 0
	}
	if d := exp.Sub(s.now()); d > time.Second {
		return d
	}
	return time.Second
}

func (s *codecStore) get(ctx context.Context, key StoreKey, v any) (bool, error) {
	data, ok, err := s.backend.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, sserr.Wrapf(err, sserr.CodeInternal, "cognito: stored %s is corrupt", key)
	}
	return true, nil
}

func (s *codecStore) set(ctx context.Context, key StoreKey, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return sserr.Wrapf(err, sserr.CodeInternal, "cognito: cannot encode %s", key)
	}
	return s.backend.Set(ctx, key, data, ttl)
}

// MemoryBackend is an in-process [Backend]. Expired entries are dropped
// lazily on read.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[StoreKey]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value    []byte
	expireAt time.Time
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend(now func() time.Time) *MemoryBackend {
	if now == nil {
		now = time.Now
	}
	return &MemoryBackend{entries: make(map[StoreKey]memoryEntry), now: now}
}

// NewMemoryStore returns a Store kept in process memory, suitable for a
// single-user CLI or for tests.
func NewMemoryStore() Store {
	return NewStore(NewMemoryBackend(nil), nil)
}

func (m *MemoryBackend) Get(_ context.Context, key StoreKey) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.expired(e) {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key StoreKey, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expireAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...StoreKey) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Exists(_ context.Context, key StoreKey) (bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	return ok && !m.expired(e), nil
}

func (m *MemoryBackend) expired(e memoryEntry) bool {
	return !e.expireAt.IsZero() && !e.expireAt.After(m.now())
}
