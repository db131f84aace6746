package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/common"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
)

// These tests need a running Redis: PRICING_TEST_REDIS_ADDR=localhost:6379
func testConfig(t *testing.T) *common.RedisConfig {
	t.Helper()
	addr := os.Getenv("PRICING_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PRICING_TEST_REDIS_ADDR not set")
	}
	return &common.RedisConfig{Addr: addr, DB: 15}
}

func TestKVStorage(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, testConfig(t))
	require.NoError(t, err)
	defer client.Close()

	kv := NewKVStorage(client, time.Minute, arbor.NewNoOpLogger())
	key := "salesforce:session:redis-test"

	require.NoError(t, kv.Set(ctx, key, "token", "test"))
	value, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "token", value)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, kv.Delete(ctx, key))
	_, err = kv.Get(ctx, key)
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
	assert.ErrorIs(t, kv.Delete(ctx, key), interfaces.ErrKeyNotFound)
}

func TestQueue_PublishReceive(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewClient(ctx, testConfig(t))
	require.NoError(t, err)
	defer client.Close()

	q, err := NewQueue(ctx, client, []string{"quoteQueue-test"}, arbor.NewNoOpLogger())
	require.NoError(t, err)
	defer q.Close()

	require.NoError(t, q.Publish(ctx, "quoteQueue-test", "job-1:Id != null"))

	msg, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "quoteQueue-test", msg.Channel)
	assert.Equal(t, "job-1:Id != null", msg.Body)
	assert.NoError(t, ack())
}

func TestQueue_ReceiveHonoursContext(t *testing.T) {
	client, err := NewClient(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer client.Close()

	q, err := NewQueue(context.Background(), client, []string{"idle-test"}, arbor.NewNoOpLogger())
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
