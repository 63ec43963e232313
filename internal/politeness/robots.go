// Package politeness implements the Politeness Enforcer (spec.md §4.5):
// robots.txt compliance, per-host crawl-delay computation, manual
// exclusion, and the per-domain fetch-attempt bookkeeping the Hybrid
// Frontier uses to schedule next-fetch-time. Grounded on the teacher's
// crawler/internal/fetcher/robots.go, adapted to cache robots.txt data in
// the coordination store's domain-metadata hash (robots_txt/robots_expires,
// spec.md §3) so every fetcher pod shares one cache instead of each pod
// refetching the same host's robots.txt independently, with a small
// in-process cache of the parsed form on top to avoid re-parsing on every
// call within one pod.
package politeness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/northcloud/hivecrawl/internal/coordination"
)

const robotsTxtPath = "/robots.txt"

// maxRobotsBodyBytes bounds how much of a robots.txt response is read,
// matching the teacher's defensive limit against oversized responses.
const maxRobotsBodyBytes = 512 * 1024

type robotsCacheEntry struct {
	data      *robotstxt.RobotsData
	rawBody   string // the body the parsed form was built from, per spec.md §4.5
	expiresAt int64  // unix seconds
	allowAll  bool
}

// RobotsChecker fetches, parses, and caches robots.txt per host. The
// authoritative cache lives in the coordination store's domain-metadata
// hash (robots_txt/robots_expires) so it's shared across pods and survives
// a pod restart; an in-process map holds the parsed robotstxt.RobotsData
// for hosts this process has already resolved, so repeated checks within
// one pod don't re-parse or round-trip to the store every time.
type RobotsChecker struct {
	httpClient *http.Client
	userAgent  string
	cacheTTL   time.Duration
	store      *coordination.Client

	mu    sync.RWMutex
	cache map[string]*robotsCacheEntry
}

// NewRobotsChecker builds a RobotsChecker. store may be nil (e.g. in unit
// tests exercising pure delay/allow logic), in which case caching is
// purely in-process for the life of the RobotsChecker.
func NewRobotsChecker(httpClient *http.Client, userAgent string, cacheTTL time.Duration, store *coordination.Client) *RobotsChecker {
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &RobotsChecker{
		httpClient: httpClient,
		userAgent:  userAgent,
		cacheTTL:   cacheTTL,
		store:      store,
		cache:      make(map[string]*robotsCacheEntry),
	}
}

// IsAllowed reports whether rawURL's path is allowed by its host's
// robots.txt for our user agent. A fetch or parse failure degrades to
// allow-all, the standard crawling convention the teacher follows.
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("politeness: parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	if host == "" {
		return false, fmt.Errorf("politeness: empty host in url %q", rawURL)
	}

	entry, err := r.getOrFetchEntry(ctx, host)
	if err != nil {
		return false, err
	}
	if entry.allowAll {
		return true, nil
	}
	return entry.data.TestAgent(parsed.Path, r.userAgent), nil
}

// CrawlDelay returns the robots.txt-declared crawl-delay for host, or 0 if
// none is set or robots.txt hasn't been fetched yet. It's called from
// RecordFetchAttempt right after an IsAllowed check on the same host, by
// which point getOrFetchEntry has already populated the in-process cache.
func (r *RobotsChecker) CrawlDelay(host string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[strings.ToLower(host)]
	if !ok || entry.allowAll || entry.data == nil {
		return 0
	}
	group := entry.data.FindGroup(r.userAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

// getOrFetchEntry returns the parsed robots.txt entry for host, preferring
// an unexpired in-process cache hit, then an unexpired store-held body,
// then fetching fresh and writing the result back to the store so sibling
// pods benefit from this pod's fetch.
func (r *RobotsChecker) getOrFetchEntry(ctx context.Context, host string) (*robotsCacheEntry, error) {
	if entry, ok := r.getCachedEntry(host); ok {
		return entry, nil
	}

	if r.store != nil {
		if entry, ok, err := r.loadFromStore(ctx, host); err == nil && ok {
			r.setCachedEntry(host, entry)
			return entry, nil
		}
	}

	entry := r.fetchAndParse(ctx, host)
	r.setCachedEntry(host, entry)
	if r.store != nil {
		r.saveToStore(ctx, host, entry)
	}
	return entry, nil
}

func (r *RobotsChecker) getCachedEntry(host string) (*robotsCacheEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[strings.ToLower(host)]
	if !ok || time.Now().Unix() > entry.expiresAt {
		return nil, false
	}
	return entry, true
}

func (r *RobotsChecker) setCachedEntry(host string, entry *robotsCacheEntry) {
	r.mu.Lock()
	r.cache[strings.ToLower(host)] = entry
	r.mu.Unlock()
}

// loadFromStore reads domain metadata's robots_txt/robots_expires fields
// (spec.md §3) and parses the cached body if it hasn't expired.
func (r *RobotsChecker) loadFromStore(ctx context.Context, host string) (*robotsCacheEntry, bool, error) {
	vals, err := r.store.HashGetFields(ctx, coordination.DomainMetaKey(host), "robots_txt", "robots_expires")
	if err != nil {
		return nil, false, err
	}
	if len(vals) < 2 || vals[1] == "" {
		return nil, false, nil
	}
	expires, convErr := strconv.ParseInt(vals[1], 10, 64)
	if convErr != nil {
		return nil, false, nil
	}
	if time.Now().Unix() > expires {
		return nil, false, nil
	}
	return parseEntry([]byte(vals[0]), 200, expires), true, nil
}

// saveToStore persists the fetched body and its expiry into the domain's
// metadata hash. The in-process entry also keeps the body it was parsed
// from (rawBody), but nothing compares it with a stored body:
// loadFromStore always re-parses what it reads.
func (r *RobotsChecker) saveToStore(ctx context.Context, host string, entry *robotsCacheEntry) {
	_ = r.store.HashSet(ctx, coordination.DomainMetaKey(host), map[string]any{
		"robots_txt":     entry.rawBody,
		"robots_expires": entry.expiresAt,
	})
}

// fetchAndParse implements spec.md §4.5's fetch order: try plain HTTP
// first; on any non-200 or empty response, fall back to HTTPS; on final
// failure, degrade to allow-all with empty content.
func (r *RobotsChecker) fetchAndParse(ctx context.Context, host string) *robotsCacheEntry {
	expiresAt := time.Now().Add(r.cacheTTL).Unix()

	body, status, err := r.doFetch(ctx, "http://"+host+robotsTxtPath)
	if err != nil || status != 200 || len(body) == 0 {
		body, status, err = r.doFetch(ctx, "https://"+host+robotsTxtPath)
	}
	if err != nil || status != 200 {
		return &robotsCacheEntry{expiresAt: expiresAt, allowAll: true}
	}
	return parseEntry(body, status, expiresAt)
}

func (r *RobotsChecker) doFetch(ctx context.Context, robotsURL string) ([]byte, int, error) {
	client := r.httpClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("politeness: create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("politeness: fetch: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxRobotsBodyBytes)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("politeness: read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func parseEntry(body []byte, statusCode int, expiresAt int64) *robotsCacheEntry {
	if statusCode < 200 || statusCode >= 300 || len(body) == 0 {
		return &robotsCacheEntry{expiresAt: expiresAt, allowAll: true}
	}
	robots, err := robotstxt.FromBytes(body)
	if err != nil {
		return &robotsCacheEntry{expiresAt: expiresAt, allowAll: true}
	}
	return &robotsCacheEntry{data: robots, rawBody: string(body), expiresAt: expiresAt}
}
