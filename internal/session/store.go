package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Store loads and saves whole session documents. Saves replace the previous
// document, so concurrent writers resolve as last write wins.
type Store interface {
	Load(ctx context.Context, sessionID string) (State, error)
	Save(ctx context.Context, sessionID string, state State) error
}

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SessionKey(sessionID string) string
}

// RedisStore keeps session documents as JSON strings with a sliding TTL.
type RedisStore struct {
	kv  redisKV
	ttl time.Duration
}

// NewRedisStore builds a Redis-backed store. Every save refreshes the TTL.
func NewRedisStore(kv redisKV, ttl time.Duration) (*RedisStore, error) {
	if kv == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisStore{kv: kv, ttl: ttl}, nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (State, error) {
	raw, err := s.kv.Get(ctx, s.kv.SessionKey(sessionID))
	if err != nil {
		if redis.IsNil(err) {
			return Empty(), nil
		}
		return State{}, err
	}
	return decodeState([]byte(raw))
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, state State) error {
	raw, err := encodeState(state)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.kv.SessionKey(sessionID), string(raw), s.ttl)
}

// MemoryStore holds encoded documents in process memory. Documents are stored
// encoded so callers never share slices with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (State, error) {
	s.mu.RLock()
	raw := s.docs[sessionID]
	s.mu.RUnlock()
	return decodeState(raw)
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, state State) error {
	raw, err := encodeState(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[sessionID] = raw
	s.mu.Unlock()
	return nil
}

// Len reports how many sessions are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
