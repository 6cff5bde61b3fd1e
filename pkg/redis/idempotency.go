package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingMarker is stored under a claimed idempotency key until the response
// is recorded.
const PendingMarker = "__pending__"

// IdempotencyStore is the claim/complete protocol used by the idempotency
// middleware. Only one caller can hold a claim on a key at a time.
type IdempotencyStore interface {
	IdempotencyKey(scope, id string) string
	Claim(ctx context.Context, key string, ttl time.Duration) (existing string, claimed bool, err error)
	Complete(ctx context.Context, key, record string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

var _ IdempotencyStore = (*Client)(nil)

// Claim marks key as in progress. When someone else got there first the
// current value is returned instead: PendingMarker or a completed record.
func (c *Client) Claim(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := c.ready(); err != nil {
		return "", false, err
	}
	// the second round covers a record that expired between SETNX and GET
	for range 2 {
		ok, err := c.store.SetNX(ctx, key, PendingMarker, ttl).Result()
		if err != nil {
			return "", false, err
		}
		if ok {
			return "", true, nil
		}
		current, err := c.store.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		return current, false, nil
	}
	return PendingMarker, false, nil
}

// Complete replaces the claim with the recorded response.
func (c *Client) Complete(ctx context.Context, key, record string, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.store.Set(ctx, key, record, ttl).Err()
}

// Release drops a claim so the request can be retried.
func (c *Client) Release(ctx context.Context, key string) error {
	return c.Del(ctx, key)
}
