package rate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const loginWindow = time.Minute

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// Limiter throttles credential-guessing attempts per login identifier.
// A zero limit disables throttling.
type Limiter struct {
	store     WindowStore
	perMinute int
}

func NewLimiter(store WindowStore, perMinute int) *Limiter {
	if perMinute < 0 {
		perMinute = 0
	}
	return &Limiter{store: store, perMinute: perMinute}
}

// AllowLogin counts the attempt and reports whether it may proceed. When
// denied, the first return value is the retry-after hint in seconds.
func (l *Limiter) AllowLogin(ctx context.Context, identifier string) (int64, bool, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return 0, false, fmt.Errorf("login identifier is required")
	}
	if l.perMinute <= 0 {
		return 0, true, nil
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	count, ttl, err := l.store.IncrementWindow(ctx, loginKey(identifier), loginWindow)
	if err != nil {
		return 0, false, err
	}
	if count > int64(l.perMinute) {
		return ceilSeconds(ttl), false, nil
	}

	return 0, true, nil
}

// RetryAfterLogin peeks at the window without counting an attempt.
func (l *Limiter) RetryAfterLogin(ctx context.Context, identifier string) (int64, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return 0, fmt.Errorf("login identifier is required")
	}
	if l.perMinute <= 0 {
		return 0, nil
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	count, ttl, err := l.store.WindowState(ctx, loginKey(identifier))
	if err != nil {
		return 0, err
	}
	if count >= int64(l.perMinute) {
		return ceilSeconds(ttl), nil
	}

	return 0, nil
}

func loginKey(identifier string) string {
	return "rate:login:min:" + identifier
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
