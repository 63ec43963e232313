// Package fetchpool implements the Fetcher Worker Pool (spec.md §4.6): each
// worker loop claims a due domain from the Hybrid Frontier, checks
// politeness, performs the HTTP GET, and records the visited outcome for
// every URL; a 2xx text response additionally emits a parse job, while
// non-2xx or non-text responses never reach the parser.
package fetchpool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/northcloud/hivecrawl/internal/contentstore"
	"github.com/northcloud/hivecrawl/internal/coordination"
	"github.com/northcloud/hivecrawl/internal/domain"
	"github.com/northcloud/hivecrawl/internal/errs"
	"github.com/northcloud/hivecrawl/internal/frontier"
	"github.com/northcloud/hivecrawl/internal/logger"
	"github.com/northcloud/hivecrawl/internal/metrics"
	"github.com/northcloud/hivecrawl/internal/politeness"
	"github.com/northcloud/hivecrawl/internal/queue"
)

// maxBodyBytes bounds how much of a fetched page is read into memory,
// matching the conservative defensive limit politeness.RobotsChecker uses
// for robots.txt bodies, scaled up for real page content.
const maxBodyBytes = 10 * 1024 * 1024 // 10 MB

// Config configures a fetcher pod's worker loops.
type Config struct {
	PodID         string
	UserAgent     string
	FetchTimeout  time.Duration
	ClaimTTL      time.Duration
	MaxCandidates int64
	IdleBackoff   time.Duration
	// ParseQueueSoftCap bounds the parse queue's length (spec.md §5's
	// backpressure rule): once reached, workers sleep IdleBackoff instead
	// of claiming a new URL, so memory in the coordination store doesn't
	// grow unbounded while parsers fall behind. 0 disables the check.
	ParseQueueSoftCap int64
}

// Pool runs the fetch worker loops for one fetcher pod.
type Pool struct {
	cfg        Config
	frontier   *frontier.HybridFrontier
	enforcer   *politeness.Enforcer
	producer   *queue.Producer
	httpClient *http.Client
	content    *contentstore.Store
	log        logger.Logger
	metrics    *metrics.Registry
}

// New builds a fetchpool.Pool.
func New(cfg Config, fr *frontier.HybridFrontier, enforcer *politeness.Enforcer, producer *queue.Producer, httpClient *http.Client, content *contentstore.Store, log logger.Logger, m *metrics.Registry) *Pool {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.FetchTimeout}
	}
	return &Pool{cfg: cfg, frontier: fr, enforcer: enforcer, producer: producer, httpClient: httpClient, content: content, log: log, metrics: m}
}

// Loop is one fetch worker's pull loop: claim a domain, fetch its next
// frontier URL, record the outcome, release the claim, repeat until ctx is
// canceled.
func (p *Pool) Loop(ctx context.Context, workerID int) error {
	fetcherID := fmt.Sprintf("%d", workerID)
	log := logger.ForProcess(p.log, p.cfg.PodID, "Fetcher", fetcherID)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := p.tick(ctx, fetcherID, log); err != nil {
			if errs.Is(err, errs.Fatal) {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.cfg.IdleBackoff):
			}
		}
	}
}

func (p *Pool) tick(ctx context.Context, fetcherID string, log logger.Logger) error {
	if p.cfg.ParseQueueSoftCap > 0 {
		depth, err := p.producer.Depth(ctx)
		if err != nil {
			log.Warn("parse queue depth check failed", logger.Error(err))
		} else if depth >= p.cfg.ParseQueueSoftCap {
			select {
			case <-ctx.Done():
			case <-time.After(p.cfg.IdleBackoff):
			}
			return nil
		}
	}

	claimTTLSeconds := int64(p.cfg.ClaimTTL.Seconds())
	claimed, token, ok, err := p.frontier.GetNextURL(ctx, fmt.Sprintf("fetcher-%s-%s", p.cfg.PodID, fetcherID), claimTTLSeconds, p.cfg.MaxCandidates)
	if err != nil {
		log.Warn("get_next_url failed", logger.Error(err))
		return err
	}
	if !ok {
		select {
		case <-ctx.Done():
		case <-time.After(p.cfg.IdleBackoff):
		}
		return nil
	}
	defer func() {
		_ = p.frontier.ReleaseClaim(context.Background(), claimed.Domain, token)
	}()

	start := time.Now()
	record, policyErr := p.fetchOne(ctx, claimed.Domain, claimed.Entry, log)
	duration := time.Since(start)

	success := record.StatusCode >= 200 && record.StatusCode < 300

	// A policy rejection (robots disallow, manual exclusion, seeded-only)
	// never reached the network, so it must not consume the domain's
	// crawl-delay slot: record the visited outcome and stop, without
	// touching next_fetch_time (spec.md §4.6 step 3 is gated behind step
	// 2's "if false ... continue").
	if errs.Is(policyErr, errs.PolicyReject) {
		if err := p.frontier.MarkVisited(ctx, claimed.Domain, record, 0); err != nil {
			log.Warn("mark_visited failed", logger.Error(err))
			return err
		}
		if p.metrics != nil {
			p.metrics.FetchErrors.WithLabelValues(p.cfg.PodID, "fetcher", fetcherID, string(errs.PolicyReject)).Inc()
		}
		return nil
	}

	nextFetch, rfaErr := p.enforcer.RecordFetchAttempt(ctx, claimed.Domain, success, domain.UnixNow())
	if rfaErr != nil {
		log.Warn("record_fetch_attempt failed", logger.Error(rfaErr))
	}
	if err := p.frontier.MarkVisited(ctx, claimed.Domain, record, nextFetch); err != nil {
		log.Warn("mark_visited failed", logger.Error(err))
		return err
	}

	if success {
		if _, err := p.frontier.Store().HashIncrement(ctx, coordination.StatsKey, "pages_fetched", 1); err != nil {
			log.Warn("increment pages_fetched counter failed", logger.Error(err))
		}
	}

	if p.metrics != nil {
		if success {
			p.metrics.PagesFetched.WithLabelValues(p.cfg.PodID, "fetcher", fetcherID).Inc()
		} else {
			kind := "http"
			if policyErr != nil {
				kind = string(classifyKind(policyErr))
			}
			p.metrics.FetchErrors.WithLabelValues(p.cfg.PodID, "fetcher", fetcherID, kind).Inc()
		}
		p.metrics.FetchDuration.WithLabelValues(p.cfg.PodID, "fetcher", fetcherID).Observe(duration.Seconds())
	}

	if success && isTextContentType(record.ContentType) {
		job := domain.ParseJob{
			URL:           claimed.Entry.URL,
			Domain:        claimed.Domain,
			Depth:         claimed.Entry.Depth,
			HTTPStatus:    record.StatusCode,
			ContentType:   record.ContentType,
			FetchedAt:     record.FetchedAt,
			BodyReference: record.ContentPath,
		}
		if err := p.producer.Enqueue(ctx, job); err != nil {
			log.Warn("enqueue parse job failed", logger.Error(err))
			return err
		}
	}

	return nil
}

func (p *Pool) fetchOne(ctx context.Context, host string, entry domain.FrontierEntry, log logger.Logger) (domain.VisitedRecord, error) {
	allowed, err := p.enforcer.IsURLAllowed(ctx, entry.URL, host)
	if err != nil || !allowed {
		status := errs.StatusDisallowed
		if errs.Is(err, errs.PolicyReject) {
			switch {
			case strings.Contains(err.Error(), errs.ErrManuallyExcluded.Error()):
				status = errs.StatusExcluded
			case strings.Contains(err.Error(), errs.ErrNotSeeded.Error()):
				status = errs.StatusNotSeeded
			}
		}
		return domain.VisitedRecord{URL: entry.URL, StatusCode: status, FetchedAt: domain.UnixNow()}, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, entry.URL, http.NoBody)
	if err != nil {
		return domain.VisitedRecord{URL: entry.URL, StatusCode: 0, FetchedAt: domain.UnixNow()}, errs.New(errs.TransientHTTP, "fetch", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Warn("fetch failed", logger.String("url", entry.URL), logger.Error(err))
		return domain.VisitedRecord{URL: entry.URL, StatusCode: 0, FetchedAt: domain.UnixNow()}, errs.New(errs.TransientHTTP, "fetch", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.VisitedRecord{URL: entry.URL, StatusCode: resp.StatusCode, FetchedAt: domain.UnixNow()}, errs.New(errs.TransientHTTP, "fetch", err)
	}

	contentType := resp.Header.Get("Content-Type")

	record := domain.VisitedRecord{
		URL:         entry.URL,
		StatusCode:  resp.StatusCode,
		FetchedAt:   domain.UnixNow(),
		ContentType: contentType,
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && isTextContentType(contentType) && p.content != nil {
		ref, storeErr := p.content.Put(body)
		if storeErr != nil {
			log.Warn("store fetched body failed", logger.Error(storeErr))
		} else {
			record.ContentPath = ref
		}
	}

	return record, nil
}

func classifyKind(err error) errs.Kind {
	var classified *errs.Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return errs.TransientHTTP
}

func isTextContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
