package frontier

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/northcloud/hivecrawl/internal/coordination"
	"github.com/northcloud/hivecrawl/internal/domain"
	"github.com/northcloud/hivecrawl/internal/errs"
)

// HybridFrontier combines the Visited Set, the Frontier File Manager, and
// the coordination store's ready index into the single component spec.md
// §4.4 describes: new URLs are deduped then appended to a per-domain file;
// a domain becomes eligible to fetch from by entering the ready index
// scored by next-eligible-fetch-time.
type HybridFrontier struct {
	store   *coordination.Client
	visited *VisitedSet
	files   *FileManager

	urlMaxLength      int
	nonTextExtensions []string
}

// Options configures a HybridFrontier.
type Options struct {
	URLMaxLength      int
	NonTextExtensions []string
}

// Store exposes the underlying coordination client for callers that need
// to read or update crawl-wide state outside the frontier's own operations
// (e.g. the fetch pool's pages_fetched counter for the max-pages stop
// condition).
func (h *HybridFrontier) Store() *coordination.Client {
	return h.store
}

// New builds a HybridFrontier.
func New(store *coordination.Client, visited *VisitedSet, files *FileManager, opts Options) *HybridFrontier {
	return &HybridFrontier{
		store:             store,
		visited:           visited,
		files:             files,
		urlMaxLength:      opts.URLMaxLength,
		nonTextExtensions: opts.NonTextExtensions,
	}
}

// AddURLsBatch normalizes, filters, and dedups a batch of discovered links,
// appending newly-seen ones to their domain's frontier file and marking the
// domain ready to fetch from if it wasn't already known. It returns the
// count of URLs actually admitted (post-filter, post-dedup).
func (h *HybridFrontier) AddURLsBatch(ctx context.Context, rawURLs []string, depth int) (admitted int, err error) {
	byDomain := make(map[string][]domain.FrontierEntry)

	for _, raw := range rawURLs {
		if h.urlMaxLength > 0 && ExceedsMaxLength(raw, h.urlMaxLength) {
			continue
		}
		if HasNonTextExtension(raw, h.nonTextExtensions) {
			continue
		}
		normalized, err := NormalizeURL(raw)
		if err != nil {
			continue
		}
		host, err := ExtractHost(normalized)
		if err != nil || host == "" {
			continue
		}

		hash := URLHash(normalized)
		added, err := h.visited.Add(ctx, hash)
		if err != nil {
			return admitted, errs.New(errs.TransientStore, "add_urls_batch", err)
		}
		if !added {
			continue
		}

		byDomain[host] = append(byDomain[host], domain.FrontierEntry{
			URL:      normalized,
			Depth:    depth,
			Priority: domain.DefaultPriority,
			AddedAt:  domain.UnixNow(),
		})
	}

	for host, entries := range byDomain {
		newSize, err := h.files.AppendEntries(host, entries)
		if err != nil {
			return admitted, errs.New(errs.TransientIO, "add_urls_batch", err)
		}
		if err := h.store.HashSet(ctx, coordination.DomainMetaKey(host), map[string]any{
			"file_path":     h.files.PathForDomain(host),
			"frontier_size": newSize,
		}); err != nil {
			return admitted, errs.New(errs.TransientStore, "add_urls_batch", err)
		}
		if err := h.ensureReady(ctx, host); err != nil {
			return admitted, err
		}
		admitted += len(entries)
	}

	return admitted, nil
}

// ensureReady adds a domain to the ready index at score 0 (immediately
// eligible) if it doesn't already have a next-fetch-time recorded, so a
// brand-new domain is picked up promptly instead of waiting behind an
// arbitrary default delay.
func (h *HybridFrontier) ensureReady(ctx context.Context, host string) error {
	vals, err := h.store.HashGetFields(ctx, coordination.DomainMetaKey(host), "next_fetch_time")
	if err != nil {
		return errs.New(errs.TransientStore, "ensure_ready", err)
	}
	if len(vals) > 0 && vals[0] != "" {
		// Domain already tracked; politeness owns its next_fetch_time from
		// here on, so leave it untouched.
		return nil
	}
	if err := h.store.SortedSetAdd(ctx, coordination.ReadyIndexKey, 0, host); err != nil {
		return errs.New(errs.TransientStore, "ensure_ready", err)
	}
	return nil
}

// ClaimedURL is a URL popped from the frontier along with the domain it
// belongs to, so the caller can release the domain claim once done.
type ClaimedURL struct {
	Domain string
	Entry  domain.FrontierEntry
}

// GetNextURL claims the earliest-due ready domain, reads the next unread
// entry from its frontier file, and returns it. It returns ok=false if no
// domain is currently ready (the caller should back off and retry).
// workerID identifies the caller for the active-domain claim; claimTTL
// bounds how long the claim survives without being released or extended.
func (h *HybridFrontier) GetNextURL(ctx context.Context, workerID string, claimTTL int64, maxCandidates int64) (result ClaimedURL, token string, ok bool, err error) {
	candidates, err := h.store.SortedSetRangeByScore(ctx, coordination.ReadyIndexKey, 0, float64(domain.UnixNow()), maxCandidates)
	if err != nil {
		return ClaimedURL{}, "", false, errs.New(errs.TransientStore, "get_next_url", err)
	}

	for _, host := range candidates {
		claimed, claimToken, err := h.store.ClaimDomain(ctx, host, workerID, secondsToDuration(claimTTL))
		if err != nil {
			return ClaimedURL{}, "", false, errs.New(errs.TransientStore, "get_next_url", err)
		}
		if !claimed {
			continue
		}

		if err := h.store.SortedSetRemove(ctx, coordination.ReadyIndexKey, host); err != nil {
			_ = h.store.ReleaseDomain(ctx, host, claimToken)
			return ClaimedURL{}, "", false, errs.New(errs.TransientStore, "get_next_url", err)
		}

		entry, found, err := h.nextUnreadEntry(ctx, host)
		if err != nil {
			_ = h.store.ReleaseDomain(ctx, host, claimToken)
			return ClaimedURL{}, "", false, err
		}
		if !found {
			// Frontier file for this domain is drained; release and move on
			// to the next candidate instead of handing back nothing.
			_ = h.store.ReleaseDomain(ctx, host, claimToken)
			continue
		}

		return ClaimedURL{Domain: host, Entry: entry}, claimToken, true, nil
	}

	return ClaimedURL{}, "", false, nil
}

func (h *HybridFrontier) nextUnreadEntry(ctx context.Context, host string) (domain.FrontierEntry, bool, error) {
	offset, err := h.readOffset(ctx, host)
	if err != nil {
		return domain.FrontierEntry{}, false, err
	}

	entry, newOffset, found, err := h.files.ReadOneFrom(host, offset)
	if err != nil {
		return domain.FrontierEntry{}, false, errs.New(errs.TransientIO, "next_unread_entry", err)
	}
	if !found {
		return domain.FrontierEntry{}, false, nil
	}

	if err := h.store.HashSet(ctx, coordination.DomainMetaKey(host), map[string]any{
		"frontier_offset": newOffset,
	}); err != nil {
		return domain.FrontierEntry{}, false, errs.New(errs.TransientStore, "next_unread_entry", err)
	}

	return entry, true, nil
}

func (h *HybridFrontier) readOffset(ctx context.Context, host string) (int64, error) {
	vals, err := h.store.HashGetFields(ctx, coordination.DomainMetaKey(host), "frontier_offset")
	if err != nil {
		return 0, errs.New(errs.TransientStore, "read_offset", err)
	}
	if len(vals) == 0 || vals[0] == "" {
		return 0, nil
	}
	offset, err := strconv.ParseInt(vals[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("frontier: parse stored offset: %w", err)
	}
	return offset, nil
}

// MarkVisited persists a resolved URL's outcome so it's never re-enqueued
// from a stale frontier-file entry, and re-admits the owning domain to the
// ready index at the caller-supplied next-fetch-time.
func (h *HybridFrontier) MarkVisited(ctx context.Context, host string, record domain.VisitedRecord, nextFetchTime int64) error {
	hash := URLHash(record.URL)
	if err := h.store.HashSet(ctx, coordination.VisitedRecordKey(hash), map[string]any{
		"url":          record.URL,
		"status_code":  record.StatusCode,
		"fetched_at":   record.FetchedAt,
		"content_path": record.ContentPath,
		"content_type": record.ContentType,
	}); err != nil {
		return errs.New(errs.TransientStore, "mark_visited", err)
	}
	if err := h.store.HashSet(ctx, coordination.DomainMetaKey(host), map[string]any{
		"next_fetch_time": nextFetchTime,
	}); err != nil {
		return errs.New(errs.TransientStore, "mark_visited", err)
	}
	if err := h.store.SortedSetAdd(ctx, coordination.ReadyIndexKey, float64(nextFetchTime), host); err != nil {
		return errs.New(errs.TransientStore, "mark_visited", err)
	}
	return nil
}

// ReleaseClaim releases a domain claim obtained from GetNextURL without
// rescheduling it; used when a fetch attempt fails transiently and the
// caller wants politeness's own retry scheduling to decide when it's ready
// again (via a subsequent MarkVisited or RecordFetchAttempt call).
func (h *HybridFrontier) ReleaseClaim(ctx context.Context, host, token string) error {
	if err := h.store.ReleaseDomain(ctx, host, token); err != nil {
		return errs.New(errs.TransientStore, "release_claim", err)
	}
	return nil
}

func secondsToDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}
