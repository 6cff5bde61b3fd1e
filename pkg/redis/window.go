package redis

import (
	"context"
	"time"
)

// Window is the state of a fixed-window counter right after a hit.
type Window struct {
	Count   int64
	ResetIn time.Duration
}

// Exceeds reports whether the window has gone past limit.
func (w Window) Exceeds(limit int64) bool {
	return limit > 0 && w.Count > limit
}

// HitWindow counts one hit against scope. The expiry is set whenever the key
// has none, so a counter orphaned between INCR and PEXPIRE heals on the next hit.
func (c *Client) HitWindow(ctx context.Context, scope string, window time.Duration) (Window, error) {
	if err := c.ready(); err != nil {
		return Window{}, err
	}
	key := c.RateLimitKey(scope)

	count, err := c.store.Incr(ctx, key).Result()
	if err != nil {
		return Window{}, err
	}
	ttl, err := c.store.PTTL(ctx, key).Result()
	if err != nil {
		return Window{}, err
	}
	if ttl < 0 && window > 0 {
		if err := c.store.PExpire(ctx, key, window).Err(); err != nil {
			return Window{}, err
		}
		ttl = window
	}
	if ttl < 0 {
		ttl = 0
	}
	return Window{Count: count, ResetIn: ttl}, nil
}
