// Package coordination wraps the Redis-backed coordination store that
// spec.md §4.1 calls for: hash, sorted-set, set, and list primitives plus
// RedisBloom probabilistic-set commands, with bounded retry on transient
// failures. It mirrors the shape of the teacher's
// crawler/internal/queue/streams.go (a typed wrapper around *redis.Client
// exposing one Go method per Redis concept) and infrastructure/redis/client.go
// (connection construction + Ping verification).
package coordination

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/northcloud/hivecrawl/internal/errs"
	"github.com/northcloud/hivecrawl/internal/logger"
)

// Config configures the coordination store connection.
type Config struct {
	Address  string
	Password string
	DB       int

	// MaxRetries bounds retries on transient command failures.
	MaxRetries int
	// BaseBackoff is the starting delay for jittered backoff between retries.
	BaseBackoff time.Duration
}

// SetDefaults fills zero-value fields with production-safe defaults.
func (c *Config) SetDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 50 * time.Millisecond
	}
}

// ErrEmptyAddress is returned when Config.Address is empty, matching
// infrastructure/redis.ErrEmptyAddress.
var ErrEmptyAddress = errors.New("coordination: redis address is empty")

// Client is the typed coordination-store wrapper used by every other
// hivecrawl package that needs shared state.
type Client struct {
	rdb *redis.Client
	cfg Config
	log logger.Logger
}

// NewClient dials Redis and verifies the connection with Ping, the way
// infrastructure/redis.NewClient does.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}
	cfg.SetDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("coordination: ping redis: %w", err)
	}

	return &Client{rdb: rdb, cfg: cfg, log: log}, nil
}

// NewClientFromRedis wraps an already-constructed *redis.Client, mirroring
// the teacher's NewStreamsClientFromRedis constructor used when the caller
// already owns a shared connection.
func NewClientFromRedis(rdb *redis.Client, cfg Config, log logger.Logger) *Client {
	cfg.SetDefaults()
	return &Client{rdb: rdb, cfg: cfg, log: log}
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Raw exposes the underlying *redis.Client for packages that need pipeline
// or transaction access beyond the typed methods below.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}

// withRetry runs op with bounded retries and jittered backoff, classifying
// exhaustion as errs.TransientStore per spec.md §4.1 and §7.
func (c *Client) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	backoff := c.cfg.BaseBackoff
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int63n(int64(backoff)))
			select {
			case <-ctx.Done():
				return errs.New(errs.TransientStore, op, ctx.Err())
			case <-time.After(backoff/2 + jitter):
			}
			backoff *= 2
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, redis.Nil) {
			return lastErr
		}
		if c.log != nil {
			c.log.Warn("coordination store op failed, retrying",
				logger.String("op", op),
				logger.Int("attempt", attempt),
				logger.Error(lastErr))
		}
	}
	return errs.New(errs.TransientStore, op, lastErr)
}
