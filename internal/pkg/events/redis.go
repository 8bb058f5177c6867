package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// RedisBus publishes credit updates over Redis pub/sub so that every API
// instance can notify its own stream subscribers.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, update CreditUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, creditChannel(update.UserID), data).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, userID uint) (<-chan CreditUpdate, func(), error) {
	sub := b.client.Subscribe(ctx, creditChannel(userID))
	// Wait for the subscription confirmation so publish-after-subscribe is not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan CreditUpdate, subscriberBuffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var update CreditUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					log.Warnf("[Events] dropping malformed credit update on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- update:
				default:
				}
			}
		}
	}()
	return out, cancel, nil
}
