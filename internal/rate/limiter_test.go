package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, cfg), mr
}

func TestLimiterBlocksAfterBudget(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(t, Config{MaxAttempts: 3, Cooldown: time.Minute})

	for i := 0; i < 2; i++ {
		if err := l.Check(ctx, "a@example.com", ""); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if err := l.Fail(ctx, "a@example.com", ""); err != nil {
			t.Fatalf("fail %d: %v", i, err)
		}
	}
	if err := l.Fail(ctx, "a@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on the third failure, got %v", err)
	}
	if err := l.Check(ctx, "a@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected check to be limited, got %v", err)
	}
	if err := l.Check(ctx, "b@example.com", ""); err != nil {
		t.Fatalf("other email should not be limited: %v", err)
	}
}

func TestLimiterWindowExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiter(t, Config{MaxAttempts: 1, Cooldown: time.Minute})

	_ = l.Fail(ctx, "a@example.com", "")
	if err := l.Check(ctx, "a@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limited, got %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := l.Check(ctx, "a@example.com", ""); err != nil {
		t.Fatalf("expected window to expire, got %v", err)
	}
}

func TestLimiterResetAndAttempts(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(t, Config{})

	_ = l.Fail(ctx, "a@example.com", "")
	_ = l.Fail(ctx, "a@example.com", "")
	n, err := l.Attempts(ctx, "a@example.com")
	if err != nil || n != 2 {
		t.Fatalf("attempts = %d, %v", n, err)
	}
	if err := l.Reset(ctx, "a@example.com"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	n, err = l.Attempts(ctx, "a@example.com")
	if err != nil || n != 0 {
		t.Fatalf("attempts after reset = %d, %v", n, err)
	}
}

func TestLimiterThrottlesByAddress(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(t, Config{MaxAttempts: 2, ThrottleByAddr: true})

	_ = l.Fail(ctx, "a@example.com", "10.0.0.1")
	if err := l.Fail(ctx, "b@example.com", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected address budget to be exhausted, got %v", err)
	}
	if err := l.Check(ctx, "c@example.com", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected address to be limited, got %v", err)
	}
	if err := l.Check(ctx, "c@example.com", "10.0.0.2"); err != nil {
		t.Fatalf("other address should pass: %v", err)
	}
}

func TestLimiterRedisDown(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiter(t, Config{})
	mr.Close()

	if err := l.Check(ctx, "a@example.com", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if err := l.Fail(ctx, "a@example.com", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
