package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevokedTokenStore guarda jti de tokens revocados hasta su expiracion.
type RevokedTokenStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type memoryRevokedTokenStore struct {
	mu    sync.Mutex
	now   func() time.Time
	items map[string]time.Time
}

// NewMemoryRevokedTokenStore crea un almacen en proceso; no sobrevive reinicios.
func NewMemoryRevokedTokenStore() RevokedTokenStore {
	return &memoryRevokedTokenStore{
		now:   time.Now,
		items: make(map[string]time.Time),
	}
}

func (s *memoryRevokedTokenStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for k, exp := range s.items {
		if now.After(exp) {
			delete(s.items, k)
		}
	}
	s.items[jti] = now.Add(ttl)
	return nil
}

func (s *memoryRevokedTokenStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.items[jti]
	if !ok {
		return false, nil
	}
	if s.now().UTC().After(exp) {
		delete(s.items, jti)
		return false, nil
	}
	return true, nil
}

type redisKVClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisRevokedTokenStore struct {
	client redisKVClient
	prefix string
}

func NewRedisRevokedTokenStore(client *redis.Client) RevokedTokenStore {
	if client == nil {
		return nil
	}
	return &redisRevokedTokenStore{
		client: client,
		prefix: "auth:revoked:",
	}
}

func (s *redisRevokedTokenStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+jti, 1, ttl).Err()
}

func (s *redisRevokedTokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
