package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const refKeyPrefix = "payment:ref:"

// IdempotencyGuard is a fast-path duplicate check for payment references,
// backed by redis with a TTL. The payments table's unique constraint is the
// durable guard; this only short-circuits replays before a transaction is
// opened. A redis failure therefore degrades to the database check instead of
// blocking payments.
type IdempotencyGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyGuard(client *redis.Client, ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{client: client, ttl: ttl}
}

// Reserve marks a reference as in-flight. Returns false when the reference
// was already reserved (a duplicate).
func (g *IdempotencyGuard) Reserve(ctx context.Context, reference string) (bool, error) {
	return g.client.SetNX(ctx, refKeyPrefix+reference, 1, g.ttl).Result()
}

// Release frees a reservation after a failed allocation so the caller can
// retry with the same reference.
func (g *IdempotencyGuard) Release(ctx context.Context, reference string) error {
	return g.client.Del(ctx, refKeyPrefix+reference).Err()
}
