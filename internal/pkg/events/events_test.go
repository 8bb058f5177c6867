package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PhotoAI/internal/pkg/env"
)

func TestMemoryBus_DeliversToMatchingUserOnly(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	mine, cancelMine, err := bus.Subscribe(ctx, 7)
	require.NoError(t, err)
	defer cancelMine()
	other, cancelOther, err := bus.Subscribe(ctx, 8)
	require.NoError(t, err)
	defer cancelOther()

	require.NoError(t, bus.Publish(ctx, CreditUpdate{UserID: 7, Balance: 500, TransactionID: "t1"}))

	select {
	case got := <-mine:
		assert.Equal(t, int64(500), got.Balance)
		assert.Equal(t, "t1", got.TransactionID)
	case <-time.After(time.Second):
		t.Fatal("expected update for subscribed user")
	}

	select {
	case got := <-other:
		t.Fatalf("unexpected update for other user: %+v", got)
	default:
	}
}

func TestMemoryBus_CancelClosesChannel(t *testing.T) {
	bus := NewMemoryBus()
	ch, cancel, err := bus.Subscribe(context.Background(), 1)
	require.NoError(t, err)

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.NoError(t, bus.Publish(context.Background(), CreditUpdate{UserID: 1}))
}

func TestMemoryBus_ContextCancelReleasesSubscription(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _, err := bus.Subscribe(ctx, 3)
	require.NoError(t, err)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryBus_SlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	bus := NewMemoryBus()
	_, cancel, err := bus.Subscribe(context.Background(), 5)
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < subscriberBuffer*3; i++ {
		require.NoError(t, bus.Publish(context.Background(), CreditUpdate{UserID: 5, Balance: int64(i)}))
	}
}

func TestCreditChannel(t *testing.T) {
	assert.Equal(t, "credits:user:42", creditChannel(42))
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379"))
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       13,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	client := newTestRedis(t)
	bus := NewRedisBus(client)
	ctx := context.Background()

	ch, cancel, err := bus.Subscribe(ctx, 99)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, bus.Publish(ctx, CreditUpdate{UserID: 99, Balance: 1000, TransactionID: "abc"}))

	select {
	case got := <-ch:
		assert.Equal(t, uint(99), got.UserID)
		assert.Equal(t, int64(1000), got.Balance)
	case <-time.After(2 * time.Second):
		t.Fatal("expected update from redis")
	}
}
