package timeout

import (
	"context"
	"errors"
	"testing"
	"time"

	"multiauth/internal/domain"
)

func TestRun_SlowOperationTimesOut(t *testing.T) {
	start := time.Now()
	_, err := Run(context.Background(), 1, func(_ context.Context) (string, error) {
		time.Sleep(100 * time.Millisecond)
		return "late", nil
	})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) >= 100*time.Millisecond {
		t.Fatalf("expected Run to return before the operation finished")
	}
}

func TestRun_FastOperationReturnsResult(t *testing.T) {
	got, err := Run(context.Background(), 10000, func(_ context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestRun_PropagatesOperationError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), 1000, func(_ context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected operation error unchanged, got %v", err)
	}
}

func TestRun_RejectsNonPositiveTimeout(t *testing.T) {
	for _, ms := range []int64{0, -5} {
		called := false
		_, err := Run(context.Background(), ms, func(_ context.Context) (int, error) {
			called = true
			return 1, nil
		})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation for %d, got %v", ms, err)
		}
		if called {
			t.Fatalf("operation must not run with invalid timeout")
		}
	}
}

func TestRun_CancelsDerivedContextOnTimeout(t *testing.T) {
	cancelled := make(chan struct{})
	_, err := Run(context.Background(), 5, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatalf("expected derived context to be cancelled")
	}
}

func TestRun_ParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, 1000, func(_ context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(1500); got != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %v", got)
	}
}
