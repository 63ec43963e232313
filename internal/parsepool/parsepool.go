// Package parsepool implements the Parser Worker Pool (spec.md §4.7): each
// worker loop dequeues a parse job, reads the fetched body back from the
// content store, extracts outbound links with goquery, resolves them
// against the page's URL, and hands the result to the Hybrid Frontier's
// AddURLsBatch.
package parsepool

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/northcloud/hivecrawl/internal/contentstore"
	"github.com/northcloud/hivecrawl/internal/errs"
	"github.com/northcloud/hivecrawl/internal/frontier"
	"github.com/northcloud/hivecrawl/internal/logger"
	"github.com/northcloud/hivecrawl/internal/metrics"
	"github.com/northcloud/hivecrawl/internal/queue"
)

// Config configures a parser pod's worker loops.
type Config struct {
	PodID         string
	DequeueWait   time.Duration
	MaxLinksPerPage int
}

// Pool runs the parse worker loops for one parser pod.
type Pool struct {
	cfg      Config
	consumer *queue.Consumer
	frontier *frontier.HybridFrontier
	content  *contentstore.Store
	log      logger.Logger
	metrics  *metrics.Registry
}

// New builds a parsepool.Pool.
func New(cfg Config, consumer *queue.Consumer, fr *frontier.HybridFrontier, content *contentstore.Store, log logger.Logger, m *metrics.Registry) *Pool {
	if cfg.MaxLinksPerPage <= 0 {
		cfg.MaxLinksPerPage = 5000
	}
	return &Pool{cfg: cfg, consumer: consumer, frontier: fr, content: content, log: log, metrics: m}
}

// Loop is one parse worker's pull loop: dequeue a parse job, extract links,
// admit them to the frontier, repeat until ctx is canceled.
func (p *Pool) Loop(ctx context.Context, workerID int) error {
	parserID := fmt.Sprintf("%d", workerID)
	log := logger.ForProcess(p.log, p.cfg.PodID, "Parser", parserID)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, ok, err := p.consumer.Dequeue(ctx, p.cfg.DequeueWait)
		if err != nil {
			log.Warn("dequeue failed", logger.Error(err))
			continue
		}
		if !ok {
			continue
		}

		start := time.Now()
		admitted, err := p.process(ctx, msg, log)
		duration := time.Since(start)

		if p.metrics != nil {
			if err != nil {
				p.metrics.ParseErrors.WithLabelValues(p.cfg.PodID, "parser", parserID).Inc()
			} else {
				p.metrics.PagesParsed.WithLabelValues(p.cfg.PodID, "parser", parserID).Inc()
				p.metrics.URLsDiscovered.WithLabelValues(p.cfg.PodID, "parser", parserID).Add(float64(admitted))
			}
			p.metrics.ParseDuration.WithLabelValues(p.cfg.PodID, "parser", parserID).Observe(duration.Seconds())
		}
		if err != nil {
			log.Warn("parse job failed", logger.String("url", msg.Job.URL), logger.Error(err))
		}
	}
}

func (p *Pool) process(ctx context.Context, msg queue.Message, log logger.Logger) (int, error) {
	job := msg.Job
	if job.BodyReference == "" {
		// Nothing stored for this job (e.g. content store disabled); treat
		// as a successful no-op parse rather than an error.
		return 0, nil
	}

	body, err := p.content.Get(job.BodyReference)
	if err != nil {
		return 0, errs.New(errs.ParseFailed, "process", err)
	}

	base, err := url.Parse(job.URL)
	if err != nil {
		return 0, errs.New(errs.ParseFailed, "process", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, errs.New(errs.ParseFailed, "process", err)
	}

	links := make([]string, 0, 64)
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(links) >= p.cfg.MaxLinksPerPage {
			return false
		}
		href, exists := s.Attr("href")
		if !exists {
			return true
		}
		resolved, err := resolveLink(base, href)
		if err != nil {
			return true
		}
		links = append(links, resolved)
		return true
	})

	admitted, err := p.frontier.AddURLsBatch(ctx, links, job.Depth+1)
	if err != nil {
		return 0, err
	}
	return admitted, nil
}

func resolveLink(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("parsepool: unsupported scheme %q", resolved.Scheme)
	}
	return resolved.String(), nil
}
