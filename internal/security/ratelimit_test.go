package security

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func fixedLimiter(cfg RateLimitConfig, now *time.Time) *RateLimiter {
	rl := NewRateLimiter(cfg)
	rl.now = func() time.Time { return *now }
	return rl
}

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := fixedLimiter(RateLimitConfig{AdminPerMin: 5}, &now)

	for i := range 5 {
		if err := rl.Allow(KindAdmin); err != nil {
			t.Fatalf("Allow(%d) returned error: %v", i, err)
		}
	}
	if err := rl.Allow(KindAdmin); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := fixedLimiter(RateLimitConfig{AdminPerMin: 2}, &now)

	_ = rl.Allow(KindAdmin)
	_ = rl.Allow(KindAdmin)
	if err := rl.Allow(KindAdmin); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected rate limit")
	}

	now = now.Add(31 * time.Second)
	if err := rl.Allow(KindAdmin); err != nil {
		t.Fatalf("expected allow after refill, got %v", err)
	}
}

func TestRateLimiter_KindsAreIndependent(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := fixedLimiter(RateLimitConfig{AdminPerMin: 1, CallbackPerMin: 1}, &now)

	if err := rl.Allow(KindAdmin); err != nil {
		t.Fatal(err)
	}
	if err := rl.Allow(KindCallback); err != nil {
		t.Fatalf("callback bucket drained by admin: %v", err)
	}
	if err := rl.Allow("unknown_kind"); err != nil {
		t.Fatalf("expected nil for unknown kind, got %v", err)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := fixedLimiter(RateLimitConfig{}, &now)

	allowed := 0
	for range 200 {
		if rl.Allow(KindAdmin) == nil {
			allowed++
		}
	}
	if allowed != 120 {
		t.Errorf("allowed = %d, want 120", allowed)
	}
}

func TestRateLimiter_Nil(t *testing.T) {
	t.Parallel()

	var rl *RateLimiter
	if err := rl.Allow(KindAdmin); err != nil {
		t.Errorf("nil limiter = %v, want nil", err)
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := fixedLimiter(RateLimitConfig{CallbackPerMin: 50}, &now)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			if rl.Allow(KindCallback) == nil {
				allowed.Add(1)
			}
		})
	}
	wg.Wait()

	if n := allowed.Load(); n != 50 {
		t.Errorf("allowed = %d, want 50", n)
	}
}
