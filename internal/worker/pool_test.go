package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsAllWorkers(t *testing.T) {
	var calls atomic.Int32
	loop := func(ctx context.Context, workerID int) error {
		calls.Add(1)
		<-ctx.Done()
		return nil
	}

	p, err := NewPool(4, loop, nil, time.Second)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for p.ActiveWorkers() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := p.ActiveWorkers(); got != 4 {
		t.Fatalf("ActiveWorkers() = %d, want 4", got)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if calls.Load() != 4 {
		t.Fatalf("expected all 4 loops to have started, got %d", calls.Load())
	}
	if p.State() != StateStopped {
		t.Fatalf("State() = %v, want StateStopped", p.State())
	}
}

func TestNewPoolRejectsInvalidConfig(t *testing.T) {
	if _, err := NewPool(0, func(context.Context, int) error { return nil }, nil, 0); err == nil {
		t.Fatal("expected error for zero pool size")
	}
	if _, err := NewPool(1, nil, nil, 0); err == nil {
		t.Fatal("expected error for nil loop")
	}
}

func TestPoolStopWithoutStart(t *testing.T) {
	p, err := NewPool(1, func(context.Context, int) error { return nil }, nil, time.Second)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := p.Stop(); err == nil {
		t.Fatal("expected error stopping a pool that was never started")
	}
}
