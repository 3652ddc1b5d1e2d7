package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles repeated failed logins per username.
type LoginLimiter interface {
	Blocked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// RedisLoginLimiter counts failures in a Redis key that expires with the window.
type RedisLoginLimiter struct {
	client      redis.Cmdable
	maxAttempts int
	window      time.Duration
}

// NewRedisLoginLimiter returns nil when throttling is disabled; a nil limiter never blocks.
func NewRedisLoginLimiter(client redis.Cmdable, maxAttempts int, window time.Duration) *RedisLoginLimiter {
	if client == nil || maxAttempts <= 0 || window <= 0 {
		return nil
	}
	return &RedisLoginLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

func limiterKey(username string) string {
	return "login_failures:" + strings.ToLower(strings.TrimSpace(username))
}

// Blocked reports whether the username reached the failure limit in the current window.
func (l *RedisLoginLimiter) Blocked(ctx context.Context, username string) (bool, error) {
	if l == nil {
		return false, nil
	}
	count, err := l.client.Get(ctx, limiterKey(username)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count >= l.maxAttempts, nil
}

// RecordFailure increments the counter; the first failure starts the window.
func (l *RedisLoginLimiter) RecordFailure(ctx context.Context, username string) error {
	if l == nil {
		return nil
	}
	key := limiterKey(username)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		return l.client.Expire(ctx, key, l.window).Err()
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *RedisLoginLimiter) Reset(ctx context.Context, username string) error {
	if l == nil {
		return nil
	}
	return l.client.Del(ctx, limiterKey(username)).Err()
}
