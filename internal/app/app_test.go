package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"multiauth/internal/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{
		FirebaseAPIKey:     "k",
		FirebaseAuthDomain: "demo.firebaseapp.com",
		DefaultTimeoutMs:   1000,
		ChallengeTimeoutMs: 1000,
		TicketSecret:       "secret",
		TicketTTLMinutes:   5,
	}
	cfg.Normalize()
	return cfg
}

func TestBuildMemory(t *testing.T) {
	a, err := Build(context.Background(), baseConfig(), zap.NewNop(), Hooks{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	if a.Auth == nil || a.Tickets == nil || a.Challenges == nil || a.Browser == nil {
		t.Fatalf("expected wired app: %+v", a)
	}
	if _, _, err := a.Tickets.Issue(); err != nil {
		t.Fatalf("issue ticket: %v", err)
	}
}

func TestBuildRedisDirectory(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	cfg := baseConfig()
	cfg.DirectoryBackend = config.DirectoryRedis
	cfg.RedisAddr = mr.Addr()

	a, err := Build(context.Background(), cfg, zap.NewNop(), Hooks{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a.Close()
}

func TestBuildRedisDirectoryUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	cfg := baseConfig()
	cfg.DirectoryBackend = config.DirectoryRedis
	cfg.RedisAddr = addr

	if _, err := Build(context.Background(), cfg, zap.NewNop(), Hooks{}); err == nil {
		t.Fatalf("expected error when redis directory is unreachable")
	}
}
