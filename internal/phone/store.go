// Package phone mantiene la sesion de verificacion por SMS entre "pedir codigo" y "enviar codigo".
package phone

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSlot es el id usado cuando el llamador no correlaciona sesiones.
const DefaultSlot = "default"

// SessionStore guarda el sessionInfo vigente por id. Take lo consume.
type SessionStore interface {
	Put(ctx context.Context, id, sessionInfo string) error
	Take(ctx context.Context, id string) (string, bool, error)
}

func slot(id string) string {
	if id == "" {
		return DefaultSlot
	}
	return id
}

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]string)}
}

func (s *MemoryStore) Put(_ context.Context, id, sessionInfo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[slot(id)] = sessionInfo
	return nil
}

func (s *MemoryStore) Take(_ context.Context, id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slot(id)
	info, ok := s.sessions[key]
	delete(s.sessions, key)
	return info, ok, nil
}

type redisSessions interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore guarda la sesion con TTL; GETDEL garantiza un unico consumo entre procesos.
type RedisStore struct {
	client redisSessions
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStore{client: client, prefix: "phone:session:", ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, id, sessionInfo string) error {
	return s.client.Set(ctx, s.prefix+slot(id), sessionInfo, s.ttl).Err()
}

func (s *RedisStore) Take(ctx context.Context, id string) (string, bool, error) {
	info, err := s.client.GetDel(ctx, s.prefix+slot(id)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return info, true, nil
}
