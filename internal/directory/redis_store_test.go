package directory

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisStore_PutGetDelete(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "bob"); err != nil || ok {
		t.Fatalf("expected missing login, got %v %v", ok, err)
	}
	if err := store.Put(ctx, "bob", "bob@x.com"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got, _ := mr.Get("user_bob"); got != "bob@x.com" {
		t.Fatalf("expected key user_bob, got %q", got)
	}
	if err := store.Put(ctx, "bob", "other@x.com"); err != nil {
		t.Fatalf("second put: %v", err)
	}
	email, ok, err := store.Get(ctx, "bob")
	if err != nil || !ok || email != "bob@x.com" {
		t.Fatalf("expected first mapping kept, got %q %v %v", email, ok, err)
	}
	if err := store.Delete(ctx, "bob"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("user_bob") {
		t.Fatalf("expected key removed")
	}
}

func TestRedisStore_ErrorWhenServerDown(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client)
	mr.Close()

	if _, _, err := store.Get(context.Background(), "bob"); err == nil {
		t.Fatalf("expected error with redis down")
	}
}
