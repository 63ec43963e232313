// Package queue implements the parse queue spec.md's data model describes
// as a Redis List (list_push_right / list_pop_left_blocking / list_length),
// not the Streams/consumer-group model the teacher's internal/queue package
// uses. The Producer/Consumer split and method names are adapted from the
// teacher's crawler/internal/queue/producer.go and consumer.go; the wire
// mechanics underneath are List ops from internal/coordination.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/northcloud/hivecrawl/internal/coordination"
	"github.com/northcloud/hivecrawl/internal/domain"
	"github.com/northcloud/hivecrawl/internal/errs"
)

// Message wraps a domain.ParseJob with an ID and enqueue timestamp, the way
// the teacher's JobMessage wraps a Job for its Streams producer.
type Message struct {
	ID         string          `json:"id"`
	Job        domain.ParseJob `json:"job"`
	EnqueuedAt int64           `json:"enqueued_at"`
}

// Producer appends parse jobs to the parse queue.
type Producer struct {
	store *coordination.Client
}

// NewProducer builds a Producer.
func NewProducer(store *coordination.Client) *Producer {
	return &Producer{store: store}
}

// Enqueue appends a single parse job to the tail of the queue.
func (p *Producer) Enqueue(ctx context.Context, job domain.ParseJob) error {
	msg := Message{
		ID:         uuid.NewString(),
		Job:        job,
		EnqueuedAt: domain.UnixNow(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: marshal message: %w", err)
	}
	if err := p.store.ListPushRight(ctx, coordination.ParseQueueKey, string(b)); err != nil {
		return errs.New(errs.TransientStore, "enqueue", err)
	}
	return nil
}

// EnqueueBatch appends multiple parse jobs, stopping at the first error.
func (p *Producer) EnqueueBatch(ctx context.Context, jobs []domain.ParseJob) error {
	for _, j := range jobs {
		if err := p.Enqueue(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

// Depth returns the current parse queue length, used for the soft-cap
// backpressure check spec.md §4.7 requires before the fetcher pool keeps
// emitting parse jobs.
func (p *Producer) Depth(ctx context.Context) (int64, error) {
	n, err := p.store.ListLength(ctx, coordination.ParseQueueKey)
	if err != nil {
		return 0, errs.New(errs.TransientStore, "depth", err)
	}
	return n, nil
}

// Consumer pops parse jobs for parser pods to process.
type Consumer struct {
	store *coordination.Client
}

// NewConsumer builds a Consumer.
func NewConsumer(store *coordination.Client) *Consumer {
	return &Consumer{store: store}
}

// Dequeue blocks up to timeout waiting for a parse job, returning ok=false
// if the timeout elapses with nothing to pop.
func (c *Consumer) Dequeue(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	raw, err := c.store.ListPopLeftBlocking(ctx, coordination.ParseQueueKey, timeout)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Message{}, false, nil
		}
		return Message{}, false, errs.New(errs.TransientStore, "dequeue", err)
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return Message{}, false, errs.New(errs.ParseFailed, "dequeue", fmt.Errorf("unmarshal message: %w", err))
	}
	return msg, true, nil
}
