// Package lock provides a Redis-backed lease for coordinating engine replicas.
package lock

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "caseflow:lease:"

// RedisLease implements a best-effort SET NX lease. It is opt-in: single
// process deployments run without one and accept the documented
// duplicate-start window.
type RedisLease struct {
	client redis.UniversalClient
	owner  string
}

func NewRedisLease(redisURL, owner string) (*RedisLease, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisLease{client: redis.NewClient(opts), owner: owner}, nil
}

// Acquire takes the lease for key if free. It returns false without error when
// another owner holds it.
func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := l.client.SetNX(ctx, keyPrefix+key, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}

	return acquired, nil
}

// Release frees the lease only when this owner still holds it.
func (l *RedisLease) Release(ctx context.Context, key string) error {
	const script = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`

	err := l.client.Eval(ctx, script, []string{keyPrefix + key}, l.owner).Err()
	if err != nil {
		return fmt.Errorf("failed to release lease %s: %w", key, err)
	}

	return nil
}

func (l *RedisLease) Close() error {
	return l.client.Close()
}
