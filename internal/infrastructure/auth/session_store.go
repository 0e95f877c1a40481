package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oracare/fulfillment/internal/domain/identity"
	"github.com/oracare/fulfillment/internal/domain/shared"
)

// NewSessionToken returns a cryptographically random session token
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// RedisSessionStore implements identity.SessionStore on Redis. Sessions
// expire server-side through the key TTL.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a new RedisSessionStore
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(token string) string {
	return "session:" + token
}

// Put stores a session until its expiry
func (s *RedisSessionStore) Put(ctx context.Context, session *identity.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return shared.NewDomainError("SESSION_EXPIRED", "Session expiry is in the past")
	}
	return s.client.Set(ctx, sessionKey(session.Token), data, ttl).Err()
}

// Get returns the session for a token
func (s *RedisSessionStore) Get(ctx context.Context, token string) (*identity.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err == redis.Nil {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var session identity.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes a session
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}

// MemorySessionStore implements identity.SessionStore in process memory.
// Used in tests and single-node development setups.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]identity.Session
}

// NewMemorySessionStore creates a new MemorySessionStore
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]identity.Session)}
}

// Put stores a session until its expiry
func (s *MemorySessionStore) Put(ctx context.Context, session *identity.Session) error {
	if !time.Now().Before(session.ExpiresAt) {
		return shared.NewDomainError("SESSION_EXPIRED", "Session expiry is in the past")
	}
	s.mu.Lock()
	s.sessions[session.Token] = *session
	s.mu.Unlock()
	return nil
}

// Get returns the session for a token
func (s *MemorySessionStore) Get(ctx context.Context, token string) (*identity.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok || session.IsExpired(time.Now()) {
		return nil, shared.ErrNotFound
	}
	return &session, nil
}

// Delete removes a session
func (s *MemorySessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

var _ identity.SessionStore = (*RedisSessionStore)(nil)
var _ identity.SessionStore = (*MemorySessionStore)(nil)
