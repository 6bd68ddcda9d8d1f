// Package directory resuelve login -> email contra el almacen de usuarios local.
package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persiste el mapeo login -> email. Las claves llegan ya normalizadas.
type Store interface {
	Get(ctx context.Context, login string) (string, bool, error)
	Put(ctx context.Context, login, email string) error
	Delete(ctx context.Context, login string) error
}

// NormalizeLogin aplica la comparacion sin distinguir mayusculas.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// MemoryStore es un Store en memoria apto para lecturas concurrentes.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, login string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email, ok := s.items[login]
	return email, ok, nil
}

// Put solo inserta si login no existe, igual que SETNX y ON CONFLICT DO NOTHING.
func (s *MemoryStore) Put(_ context.Context, login, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[login]; !ok {
		s.items[login] = email
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, login string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, login)
	return nil
}

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore guarda cada login bajo la clave "user_<login>".
type RedisStore struct {
	client  redisKV
	prefix  string
	timeout time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  "user_",
		timeout: 500 * time.Millisecond,
	}
}

func (s *RedisStore) Get(ctx context.Context, login string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	email, err := s.client.Get(ctx, s.prefix+login).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return email, true, nil
}

// Put no pisa un mapeo existente: SETNX mantiene la escritura idempotente.
func (s *RedisStore) Put(ctx context.Context, login, email string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.SetNX(ctx, s.prefix+login, email, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, login string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Del(ctx, s.prefix+login).Err()
}
