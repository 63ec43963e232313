// Package orchestrator implements the top-level crawl orchestrator
// (spec.md §4.8): spawning fetcher and parser pods as separate OS
// processes, evaluating stop conditions, sweeping stale active-domain
// claims, and coordinating graceful shutdown. Modeled on the teacher's
// internal/bootstrap/lifecycle.go choreography (stop components in a fixed
// order, log each step) generalized from "stop one monolith's subsystems"
// to "stop N spawned pod processes."
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/northcloud/hivecrawl/internal/coordination"
	"github.com/northcloud/hivecrawl/internal/logger"
	"github.com/northcloud/hivecrawl/internal/metrics"
)

// StopConditions bounds how long (or how much) a crawl may run, per
// spec.md §4.8.
type StopConditions struct {
	MaxPages    int64         // 0 = unlimited
	MaxDuration time.Duration // 0 = unlimited
}

// Config configures the orchestrator.
type Config struct {
	Binary               string // path to the hivecrawl binary, for spawning pods
	ConfigPath           string
	FetcherPods          int
	ParserPods           int
	ClaimSweepInterval   time.Duration
	StatusInterval       time.Duration
	ShutdownDrainTimeout time.Duration
	Stop                 StopConditions
	// DrainedStreak is how many consecutive one-second checks must find
	// the frontier drained and the parse queue empty before the "frontier
	// drained" stop condition fires (spec.md §4.8's "sustained window"),
	// so a brief empty-queue moment right after startup or between a
	// fetch and its resulting parse job doesn't end the crawl early.
	DrainedStreak int
}

// Orchestrator supervises every pod process for one crawl run.
type Orchestrator struct {
	cfg     Config
	store   *coordination.Client
	log     logger.Logger
	metrics *metrics.Registry

	mu    sync.Mutex
	procs []*os.Process
}

// New builds an Orchestrator. m is the registry its aggregate gauges
// (frontier_ready_domains, active_domains, parse_queue_depth) are published
// to; it may be nil, in which case only the status log line is emitted.
func New(cfg Config, store *coordination.Client, log logger.Logger, m *metrics.Registry) *Orchestrator {
	return &Orchestrator{cfg: cfg, store: store, log: log, metrics: m}
}

// Run spawns every pod, sweeps stale claims at startup and periodically,
// watches stop conditions, and drives graceful shutdown when ctx is
// canceled or a stop condition is met.
func (o *Orchestrator) Run(ctx context.Context) error {
	if swept, err := o.store.SweepStaleClaims(ctx); err != nil {
		o.log.Warn("startup claim sweep failed", logger.Error(err))
	} else if len(swept) > 0 {
		o.log.Info("swept stale claims at startup", logger.Int("count", len(swept)))
	}

	if err := o.spawnPods(ctx); err != nil {
		return fmt.Errorf("orchestrator: spawn pods: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.sweepLoop(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.statusLoop(runCtx)
	}()

	startedAt := time.Now()
	o.watchStopConditions(runCtx, startedAt)

	cancel()
	wg.Wait()

	err := o.shutdown()

	elapsed := time.Since(startedAt)
	var pages int64
	if vals, getErr := o.store.HashGetFields(context.Background(), coordination.StatsKey, "pages_fetched"); getErr == nil && len(vals) > 0 {
		pages, _ = strconv.ParseInt(vals[0], 10, 64)
	}
	o.log.Info("crawl finished",
		logger.Int64("pages_crawled", pages),
		logger.Duration("runtime", elapsed),
		logger.Float64("pages_per_second", float64(pages)/elapsed.Seconds()))
	return err
}

func (o *Orchestrator) spawnPods(ctx context.Context) error {
	for i := 0; i < o.cfg.FetcherPods; i++ {
		if err := o.spawnPod(ctx, "fetcherpod", fmt.Sprintf("fetcher-%d", i)); err != nil {
			return err
		}
	}
	for i := 0; i < o.cfg.ParserPods; i++ {
		if err := o.spawnPod(ctx, "parserpod", fmt.Sprintf("parser-%d", i)); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) spawnPod(ctx context.Context, subcommand, podID string) error {
	args := []string{subcommand, "--pod-id", podID}
	if o.cfg.ConfigPath != "" {
		args = append(args, "--config", o.cfg.ConfigPath)
	}

	cmd := exec.CommandContext(ctx, o.cfg.Binary, args...)
	// Interrupt rather than kill on ctx cancellation, so the pod drains.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("orchestrator: start pod %s: %w", podID, err)
	}

	o.log.Info("spawned pod", logger.String("pod_id", podID), logger.Int("pid", cmd.Process.Pid))

	o.mu.Lock()
	o.procs = append(o.procs, cmd.Process)
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.ClaimSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := o.store.SweepStaleClaims(ctx)
			if err != nil {
				o.log.Warn("periodic claim sweep failed", logger.Error(err))
				continue
			}
			if len(swept) > 0 {
				o.log.Info("swept stale claims", logger.Int("count", len(swept)))
			}
		}
	}
}

func (o *Orchestrator) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.logStatus(ctx)
		}
	}
}

func (o *Orchestrator) logStatus(ctx context.Context) {
	ready, err := o.store.SortedSetCard(ctx, coordination.ReadyIndexKey)
	if err != nil {
		o.log.Warn("status: ready index query failed", logger.Error(err))
		return
	}
	active, err := o.store.SetMembers(ctx, coordination.ActiveDomainsSetKey)
	if err != nil {
		o.log.Warn("status: active domains query failed", logger.Error(err))
		return
	}
	queueDepth, err := o.store.ListLength(ctx, coordination.ParseQueueKey)
	if err != nil {
		o.log.Warn("status: parse queue query failed", logger.Error(err))
		return
	}
	o.log.Info("crawl status",
		logger.Int64("ready_domains", ready),
		logger.Int("active_domains", len(active)),
		logger.Int64("parse_queue_depth", queueDepth))

	if o.metrics != nil {
		o.metrics.FrontierReady.Set(float64(ready))
		o.metrics.ActiveDomains.Set(float64(len(active)))
		o.metrics.ParseQueueDepth.Set(float64(queueDepth))
	}
}

func (o *Orchestrator) watchStopConditions(ctx context.Context, startedAt time.Time) {
	streak := o.cfg.DrainedStreak
	if streak <= 0 {
		streak = 5
	}
	consecutiveDrained := 0

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if o.cfg.Stop.MaxDuration > 0 && time.Since(startedAt) >= o.cfg.Stop.MaxDuration {
				o.log.Info("stop condition reached: max duration")
				return
			}
			if o.cfg.Stop.MaxPages > 0 {
				reached, err := o.maxPagesReached(ctx)
				if err != nil {
					o.log.Warn("max pages check failed", logger.Error(err))
				} else if reached {
					o.log.Info("stop condition reached: max pages")
					return
				}
			}
			drained, err := o.isFrontierDrained(ctx)
			if err != nil {
				o.log.Warn("stop condition check failed", logger.Error(err))
				consecutiveDrained = 0
				continue
			}
			if !drained {
				consecutiveDrained = 0
				continue
			}
			// Require a sustained window of drained checks (spec.md
			// §4.8) so a momentary empty queue between a fetch and its
			// resulting parse job doesn't end the crawl prematurely.
			consecutiveDrained++
			if consecutiveDrained >= streak {
				o.log.Info("stop condition reached: frontier drained and queue empty")
				return
			}
		}
	}
}

func (o *Orchestrator) maxPagesReached(ctx context.Context) (bool, error) {
	vals, err := o.store.HashGetFields(ctx, coordination.StatsKey, "pages_fetched")
	if err != nil {
		return false, err
	}
	if len(vals) == 0 || vals[0] == "" {
		return false, nil
	}
	var fetched int64
	for _, c := range vals[0] {
		if c < '0' || c > '9' {
			return false, nil
		}
		fetched = fetched*10 + int64(c-'0')
	}
	return fetched >= o.cfg.Stop.MaxPages, nil
}

func (o *Orchestrator) isFrontierDrained(ctx context.Context) (bool, error) {
	ready, err := o.store.SortedSetCard(ctx, coordination.ReadyIndexKey)
	if err != nil {
		return false, err
	}
	if ready > 0 {
		return false, nil
	}
	active, err := o.store.SetMembers(ctx, coordination.ActiveDomainsSetKey)
	if err != nil {
		return false, err
	}
	if len(active) > 0 {
		return false, nil
	}
	depth, err := o.store.ListLength(ctx, coordination.ParseQueueKey)
	if err != nil {
		return false, err
	}
	return depth == 0, nil
}

// shutdown signals every spawned pod to stop and waits up to
// ShutdownDrainTimeout, matching the teacher's bootstrap.Shutdown choreography
// of logging each stage as it completes.
func (o *Orchestrator) shutdown() error {
	o.log.Info("shutdown: signaling pods")

	o.mu.Lock()
	procs := append([]*os.Process(nil), o.procs...)
	o.mu.Unlock()

	for _, proc := range procs {
		if err := proc.Signal(os.Interrupt); err != nil {
			o.log.Warn("failed to signal pod", logger.Int("pid", proc.Pid), logger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		for _, proc := range procs {
			_, _ = proc.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
		o.log.Info("shutdown: all pods stopped")
	case <-time.After(o.cfg.ShutdownDrainTimeout):
		o.log.Warn("shutdown: drain timeout exceeded, remaining pods may still be running")
	}

	return nil
}
