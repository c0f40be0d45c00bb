package redis

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestReplayGuard_ConsumeOnce(t *testing.T) {
	client, _ := setupTestRedis(t)
	guard := NewReplayGuard(client)
	ctx := context.Background()

	fresh, err := guard.Consume(ctx, "payload.mac", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = guard.Consume(ctx, "payload.mac", 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, fresh, "second use must be rejected")

	fresh, err = guard.Consume(ctx, "other.mac", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestReplayGuard_StoresDigestWithTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	guard := NewReplayGuard(client)

	_, err := guard.Consume(context.Background(), "secret-state-token", 10*time.Minute)
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], stateKeyPrefix))
	assert.NotContains(t, keys[0], "secret-state-token")
	assert.Equal(t, 10*time.Minute, mr.TTL(keys[0]))
}

func TestReplayGuard_MarkerExpires(t *testing.T) {
	client, mr := setupTestRedis(t)
	guard := NewReplayGuard(client)
	ctx := context.Background()

	_, err := guard.Consume(ctx, "payload.mac", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	fresh, err := guard.Consume(ctx, "payload.mac", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestReplayGuard_Concurrent(t *testing.T) {
	client, _ := setupTestRedis(t)
	guard := NewReplayGuard(client)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fresh, err := guard.Consume(context.Background(), "payload.mac", time.Minute)
			assert.NoError(t, err)
			if fresh {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestReplayGuard_Errors(t *testing.T) {
	client, _ := setupTestRedis(t)
	_, err := NewReplayGuard(client).Consume(context.Background(), "payload.mac", 0)
	assert.Error(t, err)

	unreachable := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer unreachable.Close()
	_, err = NewReplayGuard(unreachable).Consume(context.Background(), "payload.mac", time.Minute)
	assert.Error(t, err)
}

func TestReplayGuard_Ping(t *testing.T) {
	client, _ := setupTestRedis(t)
	assert.NoError(t, NewReplayGuard(client).Ping(context.Background()))
}

func TestConnect(t *testing.T) {
	_, mr := setupTestRedis(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()

	_, err = Connect(context.Background(), "not a url")
	assert.Error(t, err)
}
