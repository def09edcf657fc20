package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "medicare:ratelimit:"

// Redis is a fixed-window counter shared by every replica. The first INCR
// in a window sets the key's TTL to the window length.
type Redis struct {
	client  redis.Cmdable
	limit   int
	window  time.Duration
	timeout time.Duration
}

// NewRedis creates a Redis-backed limiter. The client is owned by the caller.
func NewRedis(client redis.Cmdable, limit int, window time.Duration) *Redis {
	if window <= 0 {
		window = time.Minute
	}
	return &Redis{client: client, limit: limit, window: window, timeout: 250 * time.Millisecond}
}

// Allow implements Limiter.
func (l *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	if l.limit <= 0 {
		return Decision{Allowed: true}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	k := redisKeyPrefix + key
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr %s: %w", key, err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expire %s: %w", key, err)
		}
	}

	retry, err := l.client.PTTL(ctx, k).Result()
	if err != nil || retry <= 0 {
		retry = l.window
	}

	return Decision{
		Allowed:    int(count) <= l.limit,
		Limit:      l.limit,
		Remaining:  l.limit - int(count),
		RetryAfter: retry,
	}, nil
}

// Close is a no-op; the shared client is closed by its owner.
func (l *Redis) Close() error { return nil }
