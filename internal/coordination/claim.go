package coordination

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Claim keys, mirroring the teacher's convention of prefixing every
// coordination-store key by concern (internal/queue/streams.go's
// StreamName, internal/coordination/lock.go's key builder).
const (
	// ActiveDomainsSetKey is the set of domains currently claimed by a worker.
	ActiveDomainsSetKey = "hivecrawl:domains:active"
	claimKeyPrefix       = "hivecrawl:domains:claim:"
)

// DomainClaim is a single active-domain claim: which worker holds it and
// when it was acquired, the fields ClaimDomain writes to the claim hash.
// The orchestrator's sweep (spec.md §5) does not read them: it treats a
// claim as stale once its key has expired (see SweepStaleClaims).
type DomainClaim struct {
	WorkerID  string
	ClaimedAt time.Time
}

// releaseScript atomically deletes a claim only if it is still held by the
// caller's token, the same check-and-delete shape as the teacher's
// DistributedLock.Unlock Lua script.
var releaseScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "worker_id") == ARGV[1] then
	redis.call("DEL", KEYS[1])
	redis.call("SREM", KEYS[2], ARGV[2])
	return 1
end
return 0
`)

// ClaimDomain attempts to mark a domain active. It returns ok=false without
// error if another worker already holds the claim. ttl bounds how long a
// claim is considered fresh by the sweep before it's treated as abandoned.
func (c *Client) ClaimDomain(ctx context.Context, domain string, workerID string, ttl time.Duration) (ok bool, token string, err error) {
	claimKey := claimKeyPrefix + domain
	token = uuid.NewString()

	created, err := c.HashSetIfAbsent(ctx, claimKey, "worker_id", fmt.Sprintf("%s:%s", workerID, token))
	if err != nil {
		return false, "", err
	}
	if !created {
		return false, "", nil
	}

	if err := c.HashSet(ctx, claimKey, map[string]any{
		"claimed_at": time.Now().Unix(),
	}); err != nil {
		return false, "", err
	}
	if err := c.withRetry(ctx, "claim_expire", func(ctx context.Context) error {
		return c.rdb.Expire(ctx, claimKey, ttl).Err()
	}); err != nil {
		return false, "", err
	}
	if err := c.SetAdd(ctx, ActiveDomainsSetKey, domain); err != nil {
		return false, "", err
	}
	return true, fmt.Sprintf("%s:%s", workerID, token), nil
}

// ReleaseDomain releases a claim previously acquired with ClaimDomain,
// verifying the caller still holds it before deleting.
func (c *Client) ReleaseDomain(ctx context.Context, domain string, token string) error {
	claimKey := claimKeyPrefix + domain
	return c.withRetry(ctx, "release_domain", func(ctx context.Context) error {
		return releaseScript.Run(ctx, c.rdb, []string{claimKey, ActiveDomainsSetKey}, token, domain).Err()
	})
}

// ExtendClaim refreshes a claim's TTL so a claim held through a
// long-running cycle is not swept mid-flight. The fetch pool does not call
// it; its claims rely on the TTL given to ClaimDomain.
func (c *Client) ExtendClaim(ctx context.Context, domain string, ttl time.Duration) error {
	claimKey := claimKeyPrefix + domain
	return c.withRetry(ctx, "extend_claim", func(ctx context.Context) error {
		return c.rdb.Expire(ctx, claimKey, ttl).Err()
	})
}

// ActiveDomains lists every domain currently marked active, for the
// orchestrator's sweep (SweepStaleClaims).
func (c *Client) ActiveDomains(ctx context.Context) ([]string, error) {
	return c.SetMembers(ctx, ActiveDomainsSetKey)
}

// ClaimExists reports whether a claim key still exists; a claim whose key
// has expired (TTL passed, no sweep yet) is stale and the domain name still
// appears in the active set until swept.
func (c *Client) ClaimExists(ctx context.Context, domain string) (bool, error) {
	claimKey := claimKeyPrefix + domain
	var exists bool
	err := c.withRetry(ctx, "claim_exists", func(ctx context.Context) error {
		n, err := c.rdb.Exists(ctx, claimKey).Result()
		exists = n > 0
		return err
	})
	return exists, err
}

// SweepStaleClaims removes active-set membership for domains whose claim
// key has expired without being released, returning the domains it swept.
// This is the fault-tolerance glue spec.md §5 requires the orchestrator to
// run periodically and at startup.
func (c *Client) SweepStaleClaims(ctx context.Context) ([]string, error) {
	domains, err := c.ActiveDomains(ctx)
	if err != nil {
		return nil, err
	}
	var swept []string
	for _, d := range domains {
		exists, err := c.ClaimExists(ctx, d)
		if err != nil {
			return swept, err
		}
		if exists {
			continue
		}
		if err := c.SetRemove(ctx, ActiveDomainsSetKey, d); err != nil {
			return swept, err
		}
		swept = append(swept, d)
	}
	return swept, nil
}
