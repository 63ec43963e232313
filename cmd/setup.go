package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/northcloud/hivecrawl/internal/config"
	"github.com/northcloud/hivecrawl/internal/contentstore"
	"github.com/northcloud/hivecrawl/internal/coordination"
	"github.com/northcloud/hivecrawl/internal/frontier"
	"github.com/northcloud/hivecrawl/internal/logger"
	"github.com/northcloud/hivecrawl/internal/metrics"
	"github.com/northcloud/hivecrawl/internal/politeness"
	"github.com/northcloud/hivecrawl/internal/queue"
	"github.com/northcloud/hivecrawl/internal/seeds"
	"github.com/northcloud/hivecrawl/internal/worker"
)

// idleBackoff is how long a fetch worker sleeps after finding no ready work
// before polling again.
const idleBackoff = 1 * time.Second

// deps bundles the shared infrastructure every pod process needs, assembled
// once at process startup the way the teacher's cmd/crawl.go constructs its
// dependency graph before starting the crawl loop.
type deps struct {
	cfg       *config.Config
	log       logger.Logger
	store     *coordination.Client
	visited   *frontier.VisitedSet
	files     *frontier.FileManager
	frontier  *frontier.HybridFrontier
	enforcer  *politeness.Enforcer
	producer  *queue.Producer
	consumer  *queue.Consumer
	content   *contentstore.Store
}

func buildDeps(ctx context.Context, cfg *config.Config, processRole string) (*deps, error) {
	log := logger.Must(logger.Config{Level: cfg.LogLevel})

	store, err := coordination.NewClient(coordination.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("%s: connect coordination store: %w", processRole, err)
	}

	visited, err := frontier.NewVisitedSet(ctx, store, cfg.Crawler.BloomCapacity, cfg.Crawler.BloomFPR)
	if err != nil {
		return nil, fmt.Errorf("%s: init visited set: %w", processRole, err)
	}

	files, err := frontier.NewFileManager(cfg.Crawler.DataDir)
	if err != nil {
		return nil, fmt.Errorf("%s: init frontier file manager: %w", processRole, err)
	}

	hf := frontier.New(store, visited, files, frontier.Options{
		URLMaxLength:      cfg.Crawler.URLMaxLength,
		NonTextExtensions: cfg.Crawler.NonTextExtensions,
	})

	var seededDomains []string
	if cfg.Crawler.SeededOnly && cfg.Crawler.SeedFile != "" {
		lines, err := seeds.LoadLines(cfg.Crawler.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("%s: load seed file: %w", processRole, err)
		}
		for _, l := range lines {
			if host, err := frontier.ExtractHost(l); err == nil {
				seededDomains = append(seededDomains, host)
			}
		}
	}

	robotsClient := &http.Client{Timeout: cfg.Crawler.FetchTimeout}
	robots := politeness.NewRobotsChecker(robotsClient, cfg.Crawler.UserAgent, cfg.Crawler.RobotsCacheTTL, store)
	enforcer := politeness.NewEnforcer(store, robots, int64(cfg.Crawler.MinCrawlDelaySeconds), cfg.Crawler.SeededOnly, seededDomains)

	content, err := contentstore.New(cfg.Crawler.DataDir + "/content")
	if err != nil {
		return nil, fmt.Errorf("%s: init content store: %w", processRole, err)
	}

	return &deps{
		cfg:      cfg,
		log:      log,
		store:    store,
		visited:  visited,
		files:    files,
		frontier: hf,
		enforcer: enforcer,
		producer: queue.NewProducer(store),
		consumer: queue.NewConsumer(store),
		content:  content,
	}, nil
}

// seedFrontier loads manual exclusions and, on a first run, seeds the
// frontier from the configured seed file and sets is_seeded in each seeded
// domain's metadata. Seeded-only mode does not read that field: the
// Enforcer checks hosts taken from the seed file by buildDeps. On resume (spec.md §4.8, §6
// `resume`), seed loading is skipped entirely and the crawl continues from
// persisted domain metadata and frontier files; this is also what makes
// rerunning setup idempotent (spec.md §8's "idempotent seed load" property)
// since a resumed run never re-adds the seed URLs a second time.
func seedFrontier(ctx context.Context, d *deps) error {
	if d.cfg.Crawler.ExcludeFile != "" {
		hosts, err := seeds.LoadExclusionDomains(d.cfg.Crawler.ExcludeFile)
		if err != nil {
			return fmt.Errorf("load exclusion file: %w", err)
		}
		if err := politeness.LoadExclusions(ctx, d.store, hosts); err != nil {
			return fmt.Errorf("load exclusions into store: %w", err)
		}
	}

	if d.cfg.Crawler.Resume {
		return nil
	}
	if d.cfg.Crawler.SeedFile == "" {
		return nil
	}
	urls, err := seeds.LoadLines(d.cfg.Crawler.SeedFile)
	if err != nil {
		return fmt.Errorf("load seed file: %w", err)
	}
	if _, err := d.frontier.AddURLsBatch(ctx, urls, 0); err != nil {
		return fmt.Errorf("seed frontier: %w", err)
	}
	if err := markSeededDomains(ctx, d, urls); err != nil {
		return fmt.Errorf("mark seeded domains: %w", err)
	}
	return nil
}

// serveMetrics starts a Prometheus scrape endpoint for reg on addr if addr
// is non-empty, mirroring the teacher's telemetry.Provider.Handler being
// mounted under "/metrics". Runs in the background for the life of ctx; a
// bind failure is logged, not fatal, since a pod's crawl work doesn't
// depend on its metrics being scrapeable.
func serveMetrics(ctx context.Context, addr string, reg *metrics.Registry, log logger.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server stopped", logger.String("addr", addr), logger.Error(err))
		}
	}()
}

// reportWorkerUtilization periodically sets the worker_utilization_ratio
// gauge (spec.md §4.9's per-pod labeled gauges) from a worker.Pool's own
// active/size counters, since the pool itself has no registry reference.
// Runs until ctx is canceled.
func reportWorkerUtilization(ctx context.Context, reg *metrics.Registry, podID, processType string, wp *worker.Pool) {
	ticker := time.NewTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				size := wp.Size()
				if size == 0 {
					continue
				}
				ratio := float64(wp.ActiveWorkers()) / float64(size)
				reg.WorkerUtilization.WithLabelValues(podID, processType).Set(ratio)
			}
		}
	}()
}

// markSeededDomains flips is_seeded on every domain a seed URL resolved to,
// per spec.md §3's domain-metadata field and §4.8's "mark their domains as
// seeded" step. Best-effort per domain: a failure marking one domain
// doesn't block the others or abort the seed load that already succeeded.
func markSeededDomains(ctx context.Context, d *deps, urls []string) error {
	seenHosts := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		normalized, err := frontier.NormalizeURL(raw)
		if err != nil {
			continue
		}
		host, err := frontier.ExtractHost(normalized)
		if err != nil || host == "" {
			continue
		}
		if _, ok := seenHosts[host]; ok {
			continue
		}
		seenHosts[host] = struct{}{}
		if err := d.store.HashSet(ctx, coordination.DomainMetaKey(host), map[string]any{
			"is_seeded": true,
		}); err != nil {
			d.log.Warn("mark seeded domain failed", logger.String("domain", host), logger.Error(err))
		}
	}
	return nil
}
