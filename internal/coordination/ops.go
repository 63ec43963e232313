package coordination

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Hash operations back domain-metadata and visited-record storage.

// HashGetFields reads a subset of fields from a hash. Missing fields come
// back as empty strings, matching Redis HMGET semantics.
func (c *Client) HashGetFields(ctx context.Context, key string, fields ...string) ([]string, error) {
	var out []string
	err := c.withRetry(ctx, "hash_get_fields", func(ctx context.Context) error {
		vals, err := c.rdb.HMGet(ctx, key, fields...).Result()
		if err != nil {
			return err
		}
		out = make([]string, len(vals))
		for i, v := range vals {
			if v == nil {
				out[i] = ""
				continue
			}
			out[i] = v.(string)
		}
		return nil
	})
	return out, err
}

// HashSet writes fields into a hash unconditionally.
func (c *Client) HashSet(ctx context.Context, key string, fields map[string]any) error {
	return c.withRetry(ctx, "hash_set", func(ctx context.Context) error {
		return c.rdb.HSet(ctx, key, fields).Err()
	})
}

// HashSetIfAbsent sets a single field only if it does not already exist,
// returning true if this call created it. Used for the active-domain claim.
func (c *Client) HashSetIfAbsent(ctx context.Context, key, field, value string) (bool, error) {
	var created bool
	err := c.withRetry(ctx, "hash_set_if_absent", func(ctx context.Context) error {
		ok, err := c.rdb.HSetNX(ctx, key, field, value).Result()
		created = ok
		return err
	})
	return created, err
}

// HashIncrement atomically increments an integer field, used for per-domain
// failure counters and the crawl-wide pages_fetched counter.
func (c *Client) HashIncrement(ctx context.Context, key, field string, by int64) (int64, error) {
	var result int64
	err := c.withRetry(ctx, "hash_increment", func(ctx context.Context) error {
		v, err := c.rdb.HIncrBy(ctx, key, field, by).Result()
		result = v
		return err
	})
	return result, err
}

// HashDelete removes fields from a hash. Claims are not released through it;
// ReleaseDomain uses a check-and-delete script instead.
func (c *Client) HashDelete(ctx context.Context, key string, fields ...string) error {
	return c.withRetry(ctx, "hash_delete", func(ctx context.Context) error {
		return c.rdb.HDel(ctx, key, fields...).Err()
	})
}

// HashGetAll reads an entire hash in one round trip, used by the status
// subcommand to read the crawl-wide stats hash.
func (c *Client) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	var out map[string]string
	err := c.withRetry(ctx, "hash_get_all", func(ctx context.Context) error {
		v, err := c.rdb.HGetAll(ctx, key).Result()
		out = v
		return err
	})
	return out, err
}

// Sorted-set operations back the ready-to-fetch domain index, scored by
// next-eligible-fetch-time so GetNextURL can pop the earliest-due domain.

// SortedSetAdd adds or updates a member's score.
func (c *Client) SortedSetAdd(ctx context.Context, key string, score float64, member string) error {
	return c.withRetry(ctx, "sorted_set_add", func(ctx context.Context) error {
		return c.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
	})
}

// SortedSetRangeByScore returns members scored within [min, max], ascending,
// capped at limit (0 means unlimited).
func (c *Client) SortedSetRangeByScore(ctx context.Context, key string, min, max float64, limit int64) ([]string, error) {
	var out []string
	err := c.withRetry(ctx, "sorted_set_range_by_score", func(ctx context.Context) error {
		opt := &redis.ZRangeBy{
			Min: formatScore(min),
			Max: formatScore(max),
		}
		if limit > 0 {
			opt.Count = limit
		}
		v, err := c.rdb.ZRangeByScore(ctx, key, opt).Result()
		out = v
		return err
	})
	return out, err
}

// SortedSetRemove removes a member from the ready index, used when a domain
// is claimed so it can't be claimed twice.
func (c *Client) SortedSetRemove(ctx context.Context, key string, member string) error {
	return c.withRetry(ctx, "sorted_set_remove", func(ctx context.Context) error {
		return c.rdb.ZRem(ctx, key, member).Err()
	})
}

// SortedSetCard returns the number of members, used for status reporting.
func (c *Client) SortedSetCard(ctx context.Context, key string) (int64, error) {
	var out int64
	err := c.withRetry(ctx, "sorted_set_card", func(ctx context.Context) error {
		v, err := c.rdb.ZCard(ctx, key).Result()
		out = v
		return err
	})
	return out, err
}

// Set operations back the manual-exclusion set and the active-domain set.

// SetAdd adds a member to a set.
func (c *Client) SetAdd(ctx context.Context, key string, member string) error {
	return c.withRetry(ctx, "set_add", func(ctx context.Context) error {
		return c.rdb.SAdd(ctx, key, member).Err()
	})
}

// SetRemove removes a member from a set.
func (c *Client) SetRemove(ctx context.Context, key string, member string) error {
	return c.withRetry(ctx, "set_remove", func(ctx context.Context) error {
		return c.rdb.SRem(ctx, key, member).Err()
	})
}

// SetIsMember reports whether member belongs to the set.
func (c *Client) SetIsMember(ctx context.Context, key string, member string) (bool, error) {
	var out bool
	err := c.withRetry(ctx, "set_is_member", func(ctx context.Context) error {
		v, err := c.rdb.SIsMember(ctx, key, member).Result()
		out = v
		return err
	})
	return out, err
}

// SetMembers returns every member of a set, used by the orchestrator's
// active-claim sweep and the status subcommand.
func (c *Client) SetMembers(ctx context.Context, key string) ([]string, error) {
	var out []string
	err := c.withRetry(ctx, "set_members", func(ctx context.Context) error {
		v, err := c.rdb.SMembers(ctx, key).Result()
		out = v
		return err
	})
	return out, err
}

// List operations back the parse queue (spec.md's data model calls for a
// List, not a Stream, here).

// ListPushRight appends a value to the tail of a list.
func (c *Client) ListPushRight(ctx context.Context, key string, value string) error {
	return c.withRetry(ctx, "list_push_right", func(ctx context.Context) error {
		return c.rdb.RPush(ctx, key, value).Err()
	})
}

// ListPopLeftBlocking pops the head of a list, blocking up to timeout.
// A zero result with redis.Nil means the timeout elapsed with nothing to pop.
func (c *Client) ListPopLeftBlocking(ctx context.Context, key string, timeout time.Duration) (string, error) {
	v, err := c.rdb.BLPop(ctx, timeout, key).Result()
	if err != nil {
		return "", err
	}
	// BLPop returns [key, value].
	if len(v) < 2 {
		return "", redis.Nil
	}
	return v[1], nil
}

// ListLength returns the current length of a list, used for parse-queue
// soft-cap backpressure (spec.md §4.7) and status reporting.
func (c *Client) ListLength(ctx context.Context, key string) (int64, error) {
	var out int64
	err := c.withRetry(ctx, "list_length", func(ctx context.Context) error {
		v, err := c.rdb.LLen(ctx, key).Result()
		out = v
		return err
	})
	return out, err
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
