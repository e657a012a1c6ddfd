// Package dedupe coalesces change notifications that are still waiting in the
// queue, so a burst of edits to one post costs a single reindex.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Deduper tracks post ids with a change already pending.
type Deduper interface {
	// SeenAndRecord atomically checks whether postID is pending and marks it
	// if not. It returns true when a change was already pending.
	SeenAndRecord(ctx context.Context, postID int64) bool

	// Unrecord clears the pending mark. Workers call it when they pick a
	// change up, and producers call it when an enqueue fails.
	Unrecord(ctx context.Context, postID int64)

	Size() int64
}

// inMemoryDeduper keeps pending ids in a map plus an insertion-ordered list.
// When bounded and full, the oldest mark is dropped; the cost is at most one
// redundant reindex for that post.
type inMemoryDeduper struct {
	mu      sync.Mutex
	pending map[int64]*list.Element
	order   *list.List
	maxSize int // 0 or negative means unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper with the given options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50_000,
		pending: make(map[int64]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, postID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.pending[postID]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.pending) >= d.maxSize {
		d.evictOldest()
	}
	d.pending[postID] = d.order.PushBack(postID)
	d.size.Store(int64(len(d.pending)))
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, postID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.pending[postID]; ok {
		d.order.Remove(el)
		delete(d.pending, postID)
		d.size.Store(int64(len(d.pending)))
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	d.order.Remove(front)
	delete(d.pending, front.Value.(int64))
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
