package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisCache_Integration requires a running Redis on localhost; skipped otherwise.
func TestRedisCache_Integration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}

	c := NewRedisCache(client, nil)
	shop := "it-" + uuid.NewString()
	calls := 0
	compute := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`["r1"]`), nil
	}

	key := "shop:" + shop + ":upsell:list"
	v, err := c.Remember(ctx, key, time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, `["r1"]`, string(v))

	_, err = c.Remember(ctx, key, time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	require.NoError(t, c.DeletePattern(ctx, "shop:"+shop+":upsell:*"))

	n, err := client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
