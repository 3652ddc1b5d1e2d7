package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the handful of commands the limiter issues.
type fakeRedis struct {
	redis.Cmdable
	values  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	v, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(strconv.FormatInt(v, 10))
	return cmd
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "incr", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.values[key]++
	cmd.SetVal(f.values[key])
	return cmd
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "expire", key)
	f.expires[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "del")
	for _, k := range keys {
		delete(f.values, k)
		delete(f.expires, k)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func TestRedisLoginLimiter(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	limiter := NewRedisLoginLimiter(client, 3, 15*time.Minute)
	require.NotNil(t, limiter)

	blocked, err := limiter.Blocked(ctx, "Admin")
	require.NoError(t, err)
	assert.False(t, blocked)

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.RecordFailure(ctx, "Admin"))
	}
	assert.Equal(t, 15*time.Minute, client.expires["login_failures:admin"])

	blocked, err = limiter.Blocked(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, blocked)

	require.NoError(t, limiter.Reset(ctx, "ADMIN"))
	blocked, err = limiter.Blocked(ctx, "admin")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestRedisLoginLimiterErrors(t *testing.T) {
	client := newFakeRedis()
	client.err = errors.New("redis down")
	limiter := NewRedisLoginLimiter(client, 3, time.Minute)

	_, err := limiter.Blocked(context.Background(), "admin")
	assert.EqualError(t, err, "redis down")
	assert.EqualError(t, limiter.RecordFailure(context.Background(), "admin"), "redis down")
}

func TestNewRedisLoginLimiterDisabled(t *testing.T) {
	assert.Nil(t, NewRedisLoginLimiter(newFakeRedis(), 0, time.Minute))
	assert.Nil(t, NewRedisLoginLimiter(newFakeRedis(), 3, 0))
	assert.Nil(t, NewRedisLoginLimiter(nil, 3, time.Minute))
}
