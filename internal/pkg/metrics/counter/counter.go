package counter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const billingCountersKey = "billing:counters"

// Counter names.
const (
	PurchasesStarted   = "purchases_started"
	PurchasesSucceeded = "purchases_succeeded"
	PurchasesFailed    = "purchases_failed"
	LedgerWriteFailed  = "ledger_write_failed"
)

// Counters keeps billing outcome counts in a redis hash. A nil *Counters
// drops every increment.
type Counters struct {
	client *redis.Client
	key    string
}

func New(client *redis.Client) *Counters {
	return &Counters{client: client, key: billingCountersKey}
}

// Add increments a counter by one.
func (c *Counters) Add(ctx context.Context, name string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.HIncrBy(ctx, c.key, name, 1).Err()
}

// Snapshot reads all counters without resetting them.
func (c *Counters) Snapshot(ctx context.Context) (map[string]int64, error) {
	data, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}
	return parseCounts(data), nil
}

// Drain atomically takes the current counts and resets them. Increments that
// arrive while draining go to the fresh hash.
func (c *Counters) Drain(ctx context.Context) (map[string]int64, error) {
	tmpKey := fmt.Sprintf("%s:tmp:%d", c.key, time.Now().UnixNano())
	if err := c.client.Rename(ctx, c.key, tmpKey).Err(); err != nil {
		// nothing counted yet
		if errors.Is(err, redis.Nil) || strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return map[string]int64{}, nil
		}
		return nil, err
	}

	defer c.client.Del(ctx, tmpKey)

	data, err := c.client.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return nil, err
	}
	return parseCounts(data), nil
}

// Names returns the counter names of counts in stable order.
func Names(counts map[string]int64) []string {
	names := make([]string, 0, len(counts))
	for k := range counts {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func parseCounts(data map[string]string) map[string]int64 {
	out := make(map[string]int64, len(data))
	for k, v := range data {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out
}
