package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

const (
	planByIDPrefix  = "plans:id:"
	planByKeyPrefix = "plans:key:"
	planListKey     = "plans:all"
)

// PlanCacheRepo keeps serialized plan snapshots in redis so the catalog
// does not hit postgres on every listing or checkout request.
type PlanCacheRepo struct {
	client *goredis.Client
}

func NewPlanCacheRepo(client *goredis.Client) *PlanCacheRepo {
	return &PlanCacheRepo{client: client}
}

func (r *PlanCacheRepo) GetByID(ctx context.Context, planID string) ([]byte, error) {
	if planID == "" {
		return nil, fmt.Errorf("plan id is required")
	}
	return r.get(ctx, planByIDPrefix+planID)
}

func (r *PlanCacheRepo) GetByKey(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("plan key is required")
	}
	return r.get(ctx, planByKeyPrefix+key)
}

func (r *PlanCacheRepo) GetList(ctx context.Context) ([]byte, error) {
	return r.get(ctx, planListKey)
}

func (r *PlanCacheRepo) SetByID(ctx context.Context, planID string, payload []byte, ttl time.Duration) error {
	if planID == "" {
		return fmt.Errorf("plan id is required")
	}
	return r.set(ctx, planByIDPrefix+planID, payload, ttl)
}

func (r *PlanCacheRepo) SetByKey(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("plan key is required")
	}
	return r.set(ctx, planByKeyPrefix+key, payload, ttl)
}

func (r *PlanCacheRepo) SetList(ctx context.Context, payload []byte, ttl time.Duration) error {
	return r.set(ctx, planListKey, payload, ttl)
}

// Invalidate drops every cached plan entry. Called after any admin
// mutation of the catalog; simpler than tracking which keys are stale.
func (r *PlanCacheRepo) Invalidate(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, "plans:*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan plan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete plan cache keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (r *PlanCacheRepo) get(ctx context.Context, key string) ([]byte, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get cached plan: %w", err)
	}
	return payload, nil
}

func (r *PlanCacheRepo) set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if len(payload) == 0 {
		return fmt.Errorf("payload is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set cached plan: %w", err)
	}
	return nil
}
