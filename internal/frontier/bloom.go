package frontier

import (
	"context"
	"sync"

	"github.com/northcloud/hivecrawl/internal/coordination"
)

// VisitedSet is the probabilistic dedup filter spec.md §4.2 describes: a
// RedisBloom filter shared across all pods, fronted by a small per-process
// LRU-ish cache of recent inserts so a tight loop enqueueing many links from
// the same page doesn't round-trip to Redis for URLs it just added itself.
type VisitedSet struct {
	store *coordination.Client
	key   string

	mu      sync.Mutex
	recent  map[string]struct{}
	order   []string
	maxSize int
}

// NewVisitedSet builds a VisitedSet backed by store, reserving the bloom
// filter with the given capacity and false-positive rate if it doesn't
// already exist.
func NewVisitedSet(ctx context.Context, store *coordination.Client, capacity uint64, fpr float64) (*VisitedSet, error) {
	if err := store.BloomReserve(ctx, coordination.VisitedBloomKey, fpr, capacity); err != nil {
		return nil, err
	}
	return &VisitedSet{
		store:   store,
		key:     coordination.VisitedBloomKey,
		recent:  make(map[string]struct{}),
		maxSize: 4096,
	}, nil
}

// Contains reports whether urlHash has possibly been seen before. A false
// result is a guaranteed negative.
func (v *VisitedSet) Contains(ctx context.Context, urlHash string) (bool, error) {
	if v.inRecentCache(urlHash) {
		return true, nil
	}
	return v.store.BloomContains(ctx, v.key, urlHash)
}

// Add marks urlHash as seen, returning true if it was newly added.
func (v *VisitedSet) Add(ctx context.Context, urlHash string) (bool, error) {
	if v.inRecentCache(urlHash) {
		return false, nil
	}
	added, err := v.store.BloomAdd(ctx, v.key, urlHash)
	if err != nil {
		return false, err
	}
	if added {
		v.rememberLocally(urlHash)
	}
	return added, nil
}

func (v *VisitedSet) inRecentCache(urlHash string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.recent[urlHash]
	return ok
}

func (v *VisitedSet) rememberLocally(urlHash string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.recent[urlHash]; ok {
		return
	}
	v.recent[urlHash] = struct{}{}
	v.order = append(v.order, urlHash)
	if len(v.order) > v.maxSize {
		evict := v.order[0]
		v.order = v.order[1:]
		delete(v.recent, evict)
	}
}
