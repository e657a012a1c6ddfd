// Package worker runs change notifications through a handler on a fixed
// pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/eventdex/internal/domain/model"
	"github.com/okian/eventdex/pkg/logger"
	"github.com/okian/eventdex/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Handler processes one change. Errors are logged; they never stop a worker.
type Handler interface {
	Handle(ctx context.Context, c model.Change) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, c model.Change) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, c model.Change) error { return f(ctx, c) }

// Queue defines how workers receive changes.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Change
	Len() int
}

// Worker processes changes until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		handler:  handler,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	changes := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			metrics.UpdateQueueSize(w.queue.Len())
			if err := w.process(ctx, c); err != nil {
				w.logger.Error(ctx, "error processing change",
					logger.String("change_id", c.ID),
					logger.Int64("post_id", c.PostID),
					logger.String("kind", string(c.Kind)),
					logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for the current change to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs the handler, turning a panic into an error.
func (w *InMemoryWorker) process(ctx context.Context, c model.Change) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "handler_error")
		}
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()
	return w.handler.Handle(ctx, c)
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers logging through log. A count below
// one means runtime.NumCPU() * 2.
func NewPool(workerCount int, queue Queue, handler Handler, log logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	if log == nil {
		log = logger.Nop()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  log.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(queue, handler,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(log),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue so workers drain what is left, then waits for
// them. Workers still busy when ctx (or the pool timeout) expires are
// stopped without draining.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut++
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
			_ = w.Shutdown(stopCtx)
			stop()
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
