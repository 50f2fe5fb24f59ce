package redis_test

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	rdbclient "github.com/kirinyoku/tix-engine/internal/redis"
	redisrepo "github.com/kirinyoku/tix-engine/internal/repository/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openClient(t *testing.T) *goredis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	c, err := rdbclient.New(context.Background(), rdbclient.Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetOrSetJSONLoadsOnce(t *testing.T) {
	ctx := context.Background()
	cache := redisrepo.New(openClient(t))
	key := "test:" + uuid.NewString()

	type summary struct {
		Title string `json:"title"`
	}

	var calls atomic.Int32
	load := func(context.Context) (summary, error) {
		calls.Add(1)
		return summary{Title: "loaded"}, nil
	}

	for range 3 {
		v, err := redisrepo.GetOrSetJSON(ctx, cache, key, time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, "loaded", v.Title)
	}
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, cache.Del(ctx, key))
	_, err := redisrepo.GetOrSetJSON(ctx, cache, key, time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	idem := redisrepo.NewIdempotencyStore(openClient(t), time.Minute)
	key := redisrepo.KeyIdemPurchase(42, uuid.NewString())

	ok, err := idem.AcquireLock(ctx, key, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = idem.AcquireLock(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	locked, err := idem.IsLocked(ctx, key)
	require.NoError(t, err)
	assert.True(t, locked)

	_, found, err := idem.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, idem.SaveResult(ctx, key, `{"ok":true}`))

	payload, found, err := idem.GetResult(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"ok":true}`, payload)

	require.NoError(t, idem.Release(ctx, key))
	_, found, err = idem.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()
	l := redisrepo.NewSlidingWindowLimiter(openClient(t), redisrepo.KeyRateLimit("test-"+uuid.NewString()), 2, time.Hour)
	now := time.Now()

	allowed, _, _, err := l.Peek(ctx, "7", now)
	require.NoError(t, err)
	assert.True(t, allowed)

	for range 2 {
		_, err := l.Hit(ctx, "7", now)
		require.NoError(t, err)
	}

	allowed, current, retry, err := l.Peek(ctx, "7", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(2), current)
	assert.InDelta(t, float64(59*time.Minute), float64(retry), float64(time.Second))

	allowed, _, _, err = l.Peek(ctx, "7", now.Add(time.Hour+time.Second))
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, _, err = l.Peek(ctx, "8", now)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestOfferingsPubSub(t *testing.T) {
	client := openClient(t)
	ps := redisrepo.NewOfferingsPubSub(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan int64, 1)
	go func() {
		_ = ps.Subscribe(ctx, func(_ context.Context, id int64) {
			select {
			case got <- id:
			default:
			}
		})
	}()

	// wait until the subscription is live
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, redisrepo.ChannelOfferingsChanged()).Result()
		return err == nil && n[redisrepo.ChannelOfferingsChanged()] > 0
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, ps.PublishOfferingChanged(ctx, 99))

	select {
	case id := <-got:
		assert.Equal(t, int64(99), id)
	case <-ctx.Done():
		t.Fatal("no notification received")
	}
}
