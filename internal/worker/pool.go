// Package worker provides the cooperative worker-pool abstraction shared by
// the fetcher and parser pods (spec.md §5): a fixed number of goroutines
// each running an independent pull-work loop until the pod is told to stop.
// Grounded on the teacher's crawler/internal/worker/pool.go (PoolState enum,
// atomic counters, WaitGroup-based drain), generalized from job-submission
// semantics to the supervised-loop shape spec.md's pods actually need, and
// using golang.org/x/sync/errgroup for fan-out/shutdown instead of the
// teacher's hand-rolled semaphore channel, matching the idiom used across
// the wider retrieved pack for this kind of goroutine supervision.
package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/northcloud/hivecrawl/internal/logger"
)

// State mirrors the teacher's PoolState enum.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	default:
		return "stopped"
	}
}

// Loop is the function each worker goroutine runs. It should return when
// ctx is canceled; a returned error is logged but does not stop sibling
// workers, matching spec.md's "one worker's failure should not halt the pod"
// expectation.
type Loop func(ctx context.Context, workerID int) error

// Pool runs a fixed number of Loop instances concurrently and supports a
// graceful, timeout-bounded shutdown.
type Pool struct {
	size         int
	loop         Loop
	log          logger.Logger
	drainTimeout time.Duration

	state  atomic.Int32
	active atomic.Int32

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewPool builds a Pool of size workers, each running loop.
func NewPool(size int, loop Loop, log logger.Logger, drainTimeout time.Duration) (*Pool, error) {
	if size <= 0 {
		return nil, errors.New("worker: pool size must be positive")
	}
	if loop == nil {
		return nil, errors.New("worker: loop cannot be nil")
	}
	if drainTimeout <= 0 {
		drainTimeout = 30 * time.Second
	}
	return &Pool{size: size, loop: loop, log: log, drainTimeout: drainTimeout}, nil
}

// Start launches all workers, each wrapped to track StateRunning/active
// counts and to recover the pool's bookkeeping when a loop returns.
func (p *Pool) Start(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateStopped), int32(StateRunning)) {
		return errors.New("worker: pool already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	group, groupCtx := errgroup.WithContext(runCtx)
	p.group = group

	for i := 0; i < p.size; i++ {
		workerID := i
		group.Go(func() error {
			p.active.Add(1)
			defer p.active.Add(-1)
			if err := p.loop(groupCtx, workerID); err != nil && p.log != nil {
				p.log.Warn("worker loop exited with error",
					logger.Int("worker_id", workerID),
					logger.Error(err))
			}
			return nil
		})
	}

	if p.log != nil {
		p.log.Info("worker pool started", logger.Int("pool_size", p.size))
	}
	return nil
}

// Stop signals every worker loop to stop via context cancellation and waits
// up to drainTimeout for them to exit.
func (p *Pool) Stop() error {
	if !p.state.CompareAndSwap(int32(StateRunning), int32(StateDraining)) {
		return errors.New("worker: pool not running")
	}
	if p.log != nil {
		p.log.Info("worker pool draining")
	}

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- p.group.Wait()
	}()

	select {
	case err := <-done:
		if p.log != nil {
			p.log.Info("worker pool stopped")
		}
		p.state.Store(int32(StateStopped))
		return err
	case <-time.After(p.drainTimeout):
		if p.log != nil {
			p.log.Warn("worker pool drain timeout exceeded")
		}
		p.state.Store(int32(StateStopped))
		return errors.New("worker: drain timeout exceeded")
	}
}

// State returns the current pool state.
func (p *Pool) State() State {
	return State(p.state.Load())
}

// ActiveWorkers returns how many worker goroutines are currently running.
func (p *Pool) ActiveWorkers() int {
	return int(p.active.Load())
}

// Size returns the configured pool size.
func (p *Pool) Size() int {
	return p.size
}
