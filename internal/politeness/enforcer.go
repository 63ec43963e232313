package politeness

import (
	"context"
	"strings"

	"github.com/northcloud/hivecrawl/internal/coordination"
	"github.com/northcloud/hivecrawl/internal/errs"
)

// Enforcer is the Politeness Enforcer (spec.md §4.5): it decides whether a
// URL may be fetched and how long to wait before the next fetch to the same
// domain, combining robots.txt, manual exclusion, seeded-only mode, and a
// configured minimum crawl delay.
type Enforcer struct {
	store      *coordination.Client
	robots     *RobotsChecker
	minDelay   int64 // seconds
	seededOnly bool
	seeded     map[string]struct{}
}

// NewEnforcer builds an Enforcer. seededDomains is ignored unless
// seededOnly is true, matching spec.md §4.5's seeded-urls-only mode.
func NewEnforcer(store *coordination.Client, robots *RobotsChecker, minDelaySeconds int64, seededOnly bool, seededDomains []string) *Enforcer {
	seeded := make(map[string]struct{}, len(seededDomains))
	for _, d := range seededDomains {
		seeded[strings.ToLower(d)] = struct{}{}
	}
	return &Enforcer{
		store:      store,
		robots:     robots,
		minDelay:   minDelaySeconds,
		seededOnly: seededOnly,
		seeded:     seeded,
	}
}

// IsURLAllowed reports whether rawURL may be fetched: not manually
// excluded, not blocked by robots.txt, and (in seeded-only mode) belonging
// to a seeded domain. On rejection it returns the specific policy error so
// callers can record the right sentinel status code.
func (e *Enforcer) IsURLAllowed(ctx context.Context, rawURL string, host string) (bool, error) {
	excluded, err := e.store.SetIsMember(ctx, coordination.ExclusionSetKey, strings.ToLower(host))
	if err != nil {
		return false, errs.New(errs.TransientStore, "is_url_allowed", err)
	}
	if excluded {
		return false, errs.New(errs.PolicyReject, "is_url_allowed", errs.ErrManuallyExcluded)
	}

	if e.seededOnly {
		if _, ok := e.seeded[strings.ToLower(host)]; !ok {
			return false, errs.New(errs.PolicyReject, "is_url_allowed", errs.ErrNotSeeded)
		}
	}

	allowed, err := e.robots.IsAllowed(ctx, rawURL)
	if err != nil {
		return false, errs.New(errs.TransientHTTP, "is_url_allowed", err)
	}
	if !allowed {
		return false, errs.New(errs.PolicyReject, "is_url_allowed", errs.ErrRobotsDisallowed)
	}
	return true, nil
}

// CrawlDelay returns the effective crawl delay for host: the larger of the
// robots.txt-declared delay and the configured minimum, per spec.md §4.5.
func (e *Enforcer) CrawlDelay(host string) int64 {
	robotsDelay := int64(e.robots.CrawlDelay(host).Seconds())
	if robotsDelay > e.minDelay {
		return robotsDelay
	}
	return e.minDelay
}

// RecordFetchAttempt persists the outcome of a fetch attempt on host and
// returns its next eligible fetch time (now plus CrawlDelay); the caller
// stores that time via MarkVisited. Every failed attempt increments the
// domain's failure_count field and a success resets it to 0; nothing else
// in the crawler reads that field.
func (e *Enforcer) RecordFetchAttempt(ctx context.Context, host string, success bool, nowUnix int64) (nextFetchTime int64, err error) {
	delay := e.CrawlDelay(host)
	nextFetchTime = nowUnix + delay

	fields := map[string]any{
		"last_fetch_attempt": nowUnix,
	}
	if !success {
		if _, err := e.store.HashIncrement(ctx, coordination.DomainMetaKey(host), "failure_count", 1); err != nil {
			return 0, errs.New(errs.TransientStore, "record_fetch_attempt", err)
		}
	} else {
		fields["failure_count"] = 0
	}
	if err := e.store.HashSet(ctx, coordination.DomainMetaKey(host), fields); err != nil {
		return 0, errs.New(errs.TransientStore, "record_fetch_attempt", err)
	}

	return nextFetchTime, nil
}

// CanFetchDomainNow reports whether host's next-fetch-time has already
// passed. The fetch pool does not call it; it relies on GetNextURL's
// ready-index score filtering alone.
func (e *Enforcer) CanFetchDomainNow(ctx context.Context, host string, nowUnix int64) (bool, error) {
	vals, err := e.store.HashGetFields(ctx, coordination.DomainMetaKey(host), "next_fetch_time")
	if err != nil {
		return false, errs.New(errs.TransientStore, "can_fetch_domain_now", err)
	}
	if len(vals) == 0 || vals[0] == "" {
		return true, nil
	}
	return parseUnixOrZero(vals[0]) <= nowUnix, nil
}

func parseUnixOrZero(s string) int64 {
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	return n
}

// LoadExclusions seeds the manual-exclusion set from a list of domains,
// lowercased for case-insensitive matching per spec.md §4.5.
func LoadExclusions(ctx context.Context, store *coordination.Client, hosts []string) error {
	for _, h := range hosts {
		if err := store.SetAdd(ctx, coordination.ExclusionSetKey, strings.ToLower(strings.TrimSpace(h))); err != nil {
			return errs.New(errs.TransientStore, "load_exclusions", err)
		}
	}
	return nil
}
