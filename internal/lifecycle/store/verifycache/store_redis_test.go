package verifycache_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certflow/internal/lifecycle/store/verifycache"
	"certflow/pkg/platform/circuit"
)

func TestRedisCache_BreakerSkipsUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	breaker := circuit.New("verify-cache-test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	cache := verifycache.NewRedis(client, time.Minute, verifycache.WithBreaker(breaker))
	ctx := context.Background()

	for range 2 {
		_, ok, err := cache.Get(ctx, "abc")
		assert.Error(t, err)
		assert.False(t, ok)
	}
	require.True(t, breaker.IsOpen())

	v, ok, err := cache.Get(ctx, "abc")
	assert.NoError(t, err, "open breaker reports a plain miss")
	assert.False(t, ok)
	assert.Nil(t, v)

	assert.NoError(t, cache.Fill(ctx, "abc", nil), "fills are skipped while open")
	assert.Error(t, cache.Replace(ctx, "abc", nil), "replacement still reaches redis")
}
