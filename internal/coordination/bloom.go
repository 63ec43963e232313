package coordination

import (
	"context"
	"errors"
	"strings"
)

// RedisBloom commands are invoked through the generic Do() call: no Go
// client in the retrieved pack wraps BF.*, so these follow the same
// "typed Go method over a raw command" shape as the teacher's
// crawler/internal/queue/streams.go XAdd/XClaim wrappers.

// BloomReserve creates a bloom filter with the given target error rate and
// capacity. It tolerates "item exists" so callers can call it unconditionally
// at startup without checking first.
func (c *Client) BloomReserve(ctx context.Context, key string, errorRate float64, capacity uint64) error {
	return c.withRetry(ctx, "bloom_reserve", func(ctx context.Context) error {
		err := c.rdb.Do(ctx, "BF.RESERVE", key, errorRate, capacity).Err()
		if err != nil && strings.Contains(err.Error(), "item exists") {
			return nil
		}
		return err
	})
}

// BloomAdd adds an item to the filter, returning true if it was newly added
// (false means it was, with high probability, already present).
func (c *Client) BloomAdd(ctx context.Context, key string, item string) (bool, error) {
	var added bool
	err := c.withRetry(ctx, "bloom_add", func(ctx context.Context) error {
		v, err := c.rdb.Do(ctx, "BF.ADD", key, item).Bool()
		added = v
		return err
	})
	return added, err
}

// BloomContains reports whether item is possibly present in the filter.
// A false result is a guaranteed negative; a true result may be a false
// positive, per spec.md §3's dedup tolerance.
func (c *Client) BloomContains(ctx context.Context, key string, item string) (bool, error) {
	var present bool
	err := c.withRetry(ctx, "bloom_contains", func(ctx context.Context) error {
		v, err := c.rdb.Do(ctx, "BF.EXISTS", key, item).Bool()
		present = v
		return err
	})
	return present, err
}

// ErrBloomUnavailable is returned by callers that choose to degrade instead
// of retry when RedisBloom isn't loaded on the target Redis instance.
var ErrBloomUnavailable = errors.New("coordination: RedisBloom module unavailable")
