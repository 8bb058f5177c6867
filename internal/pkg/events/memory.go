package events

import (
	"context"
	"sync"
)

const subscriberBuffer = 8

// MemoryBus fans updates out to in-process subscribers. Slow subscribers drop
// updates instead of blocking the publisher.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[uint]map[int]chan CreditUpdate
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[uint]map[int]chan CreditUpdate)}
}

func (b *MemoryBus) Publish(ctx context.Context, update CreditUpdate) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[update.UserID] {
		select {
		case ch <- update:
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, userID uint) (<-chan CreditUpdate, func(), error) {
	ch := make(chan CreditUpdate, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]chan CreditUpdate)
	}
	b.subs[userID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], id)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}
