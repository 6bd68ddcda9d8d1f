package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"multiauth/internal/config"
)

func TestNewRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewRedis(context.Background(), &config.Config{RedisAddr: mr.Addr()})
	if err != nil {
		t.Fatalf("new redis: %v", err)
	}
	_ = client.Close()
}

func TestNewRedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedis(context.Background(), &config.Config{RedisAddr: addr}); err == nil {
		t.Fatalf("expected ping error")
	}
}

func TestNewPoolBadURL(t *testing.T) {
	if _, err := NewPool(context.Background(), &config.Config{DatabaseURL: "://bad"}); err == nil {
		t.Fatalf("expected parse error")
	}
}
