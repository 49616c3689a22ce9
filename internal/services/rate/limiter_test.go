package rate

import (
	"context"
	"testing"
	"time"
)

type stubWindowStore struct {
	counts map[string]int64
	ttl    time.Duration
	err    error
}

func newStubWindowStore() *stubWindowStore {
	return &stubWindowStore{counts: make(map[string]int64), ttl: 30 * time.Second}
}

func (s *stubWindowStore) IncrementWindow(_ context.Context, key string, _ time.Duration) (int64, time.Duration, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	s.counts[key]++
	return s.counts[key], s.ttl, nil
}

func (s *stubWindowStore) WindowState(_ context.Context, key string) (int64, time.Duration, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	return s.counts[key], s.ttl, nil
}

func TestAllowLoginWithinLimit(t *testing.T) {
	limiter := NewLimiter(newStubWindowStore(), 3)

	for i := 0; i < 3; i++ {
		retry, ok, err := limiter.AllowLogin(context.Background(), "trader@example.com")
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if !ok || retry != 0 {
			t.Fatalf("attempt %d should be allowed, got ok=%v retry=%d", i, ok, retry)
		}
	}
}

func TestAllowLoginOverLimit(t *testing.T) {
	limiter := NewLimiter(newStubWindowStore(), 2)

	ctx := context.Background()
	limiter.AllowLogin(ctx, "trader@example.com")
	limiter.AllowLogin(ctx, "trader@example.com")

	retry, ok, err := limiter.AllowLogin(ctx, "trader@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("third attempt should be denied")
	}
	if retry != 30 {
		t.Fatalf("retry-after = %d, want 30", retry)
	}
}

func TestAllowLoginNormalizesIdentifier(t *testing.T) {
	store := newStubWindowStore()
	limiter := NewLimiter(store, 1)

	ctx := context.Background()
	limiter.AllowLogin(ctx, "Trader@Example.com ")
	_, ok, err := limiter.AllowLogin(ctx, "trader@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("case-variant identifier should share the window")
	}
}

func TestZeroLimitDisablesThrottling(t *testing.T) {
	limiter := NewLimiter(nil, 0)

	for i := 0; i < 50; i++ {
		_, ok, err := limiter.AllowLogin(context.Background(), "trader@example.com")
		if err != nil || !ok {
			t.Fatalf("attempt %d: ok=%v err=%v", i, ok, err)
		}
	}
}

func TestRetryAfterLoginDoesNotCount(t *testing.T) {
	store := newStubWindowStore()
	limiter := NewLimiter(store, 2)

	ctx := context.Background()
	limiter.AllowLogin(ctx, "trader@example.com")

	if _, err := limiter.RetryAfterLogin(ctx, "trader@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.counts[loginKey("trader@example.com")]; got != 1 {
		t.Fatalf("peek should not increment, count = %d", got)
	}
}
