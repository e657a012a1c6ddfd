package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/eventdex/internal/domain/model"
)

func change(postID int64) model.Change {
	return model.Change{PostID: postID, Kind: model.ChangeEdited}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, change(1)); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.PostID != 1 {
		t.Errorf("expected post 1, got %d", got.PostID)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		if err := q.Enqueue(ctx, change(id)); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}
	if err := q.Enqueue(ctx, change(3)); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if q.Cap() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Cap())
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, change(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if err := q.Enqueue(ctx, change(int64(p*100+j+1))); err != nil {
					t.Errorf("producer %d: %v", p, err)
				}
			}
		}(p)
	}
	wg.Wait()

	if l := q.Len(); l != 1000 {
		t.Fatalf("expected 1000 queued, got %d", l)
	}

	seen := make(map[int64]bool, 1000)
	ch := q.Dequeue(ctx)
	for i := 0; i < 1000; i++ {
		seen[(<-ch).PostID] = true
	}
	if len(seen) != 1000 {
		t.Errorf("expected 1000 distinct changes, got %d", len(seen))
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	_ = q.Enqueue(ctx, change(1))
	_ = q.Enqueue(ctx, change(2))

	if err := q.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if err := q.Enqueue(ctx, change(3)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Pending changes drain before the channel reports closed.
	var drained []int64
	for c := range q.Dequeue(ctx) {
		drained = append(drained, c.PostID)
	}
	if len(drained) != 2 || drained[0] != 1 || drained[1] != 2 {
		t.Errorf("expected [1 2] drained, got %v", drained)
	}
}

func TestInMemoryQueue_CloseDuringEnqueue(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100_000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if err := q.Enqueue(ctx, change(int64(j+1))); errors.Is(err, ErrClosed) {
					return
				}
			}
		}()
	}
	_ = q.Close()
	wg.Wait() // must not panic with a send on a closed channel
}
