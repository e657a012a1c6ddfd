// Package queue carries post change notifications from the host's hooks to
// the reindex workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/eventdex/internal/domain/model"
	"github.com/okian/eventdex/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a change without blocking. It returns ErrFull when the
	// queue is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, c model.Change) error

	// Dequeue returns the channel workers receive from. It is closed by Close
	// once the remaining changes are drained.
	Dequeue(ctx context.Context) <-chan model.Change

	// Len returns the current number of queued changes.
	Len() int

	// Close stops accepting changes. Queued changes stay readable.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	changes  chan model.Change
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.changes = make(chan model.Change, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c model.Change) error {
	// The read lock keeps Close from closing the channel under a send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.changes <- c:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.changes))
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Change {
	return q.changes
}

// Len implements Queue.
func (q *InMemoryQueue) Len() int {
	n := len(q.changes)
	metrics.UpdateQueueSize(n)
	return n
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close implements Queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.changes)
	q.closed = true
	return nil
}

// IsClosed implements Queue.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
