package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateRepo tracks counters in fixed expiry windows. The window's lifetime
// starts on the first hit; later hits only bump the counter.
type RateRepo struct {
	client *goredis.Client
}

func NewRateRepo(client *goredis.Client) *RateRepo {
	return &RateRepo{client: client}
}

// IncrementWindow bumps the counter under key and reports the new count
// together with the time left until the window resets.
func (r *RateRepo) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, errors.New("redis client is nil")
	}
	if key == "" || window <= 0 {
		return 0, 0, errors.New("rate window needs a key and a positive duration")
	}

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("incr %s: %w", key, err)
	}
	// First hit opens the window.
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("expire %s: %w", key, err)
		}
	}

	ttl, err := r.windowTTL(ctx, key)
	if err != nil {
		return 0, 0, err
	}
	return count, ttl, nil
}

// WindowState reads the counter without touching it. A missing key reads
// as an empty window.
func (r *RateRepo) WindowState(ctx context.Context, key string) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, errors.New("redis client is nil")
	}
	if key == "" {
		return 0, 0, errors.New("rate key is required")
	}

	count, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("get %s: %w", key, err)
	}

	ttl, err := r.windowTTL(ctx, key)
	if err != nil {
		return 0, 0, err
	}
	return count, ttl, nil
}

func (r *RateRepo) windowTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("ttl %s: %w", key, err)
	}
	// -1 (no expiry) and -2 (gone) both read as an exhausted window.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
