package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "webhook:event:"

// RedisDeduper marks event ids with SET NX, which is a single atomic
// check-and-set on the server. The replay window maps onto the key
// TTL, so the seen-set survives process restarts and is shared across
// instances.
type RedisDeduper struct {
	client *redis.Client
	window time.Duration
}

func NewRedisDeduper(client *redis.Client, window time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, window: window}
}

func (d *RedisDeduper) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	fresh, err := d.client.SetNX(ctx, dedupeKeyPrefix+eventID, 1, d.window).Result()
	if err != nil {
		return false, fmt.Errorf("CheckAndMark: %w", err)
	}
	return fresh, nil
}
