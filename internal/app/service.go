// Package service wires the event pipeline together: it reindexes documents
// on demand, in bulk and from change notifications, and exposes the index to
// the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	eventqueue "github.com/okian/eventdex/internal/adapters/mq/queue"
	workerpool "github.com/okian/eventdex/internal/adapters/mq/worker"
	"github.com/okian/eventdex/internal/adapters/repository"
	"github.com/okian/eventdex/internal/adapters/source"
	"github.com/okian/eventdex/internal/domain/dedupe"
	"github.com/okian/eventdex/internal/domain/model"
	"github.com/okian/eventdex/pkg/logger"
	"github.com/okian/eventdex/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Startup backfill modes.
const (
	BackfillNever  = "never"
	BackfillAuto   = "auto" // only when the index is empty
	BackfillAlways = "always"
)

// Normalizer turns a source document into an index record.
type Normalizer interface {
	Normalize(ctx context.Context, doc model.SourceDocument) (model.EventRecord, error)
}

// Service implements the API dependencies and the indexing operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	source     source.DocumentSource
	normalizer Normalizer
	store      repository.Store

	// Created by Start
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	scheduler  *cron.Cron

	// Startup backfill, cancelled by Stop
	cancelBackfill context.CancelFunc
	backfillDone   chan struct{}

	// Configuration
	workerCount        int
	queueSize          int
	dedupeSize         int
	reindexConcurrency int
	reindexLimit       int
	schedule           string
	backfill           string

	// State
	started   bool
	batchMu   sync.Mutex // guards lastBatch; never held with mu
	lastBatch *BatchReport

	logger logger.Logger
}

// New constructs a Service over its collaborators.
func New(src source.DocumentSource, normalizer Normalizer, store repository.Store, opts ...Option) *Service {
	s := &Service{
		source:             src,
		normalizer:         normalizer,
		store:              store,
		workerCount:        runtime.NumCPU() * 2,
		queueSize:          10_000,
		dedupeSize:         50_000,
		reindexConcurrency: 4,
		reindexLimit:       5_000,
		backfill:           BackfillNever,
		logger:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the change queue and worker pool and, when configured, the
// periodic bulk reindex.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting event indexer...")

	d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.deduper = d
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.handler(d), s.logger)
	s.workerPool.Start(ctx)

	if s.schedule != "" {
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		if _, err := c.AddFunc(s.schedule, s.scheduledReindex); err != nil {
			_ = s.workerPool.Shutdown(ctx)
			return fmt.Errorf("reindex schedule %q: %w", s.schedule, err)
		}
		c.Start()
		s.scheduler = c
	}

	if s.backfill == BackfillAuto || s.backfill == BackfillAlways {
		bctx, cancel := context.WithCancel(ctx)
		s.cancelBackfill = cancel
		s.backfillDone = make(chan struct{})
		go s.runBackfill(bctx, s.backfillDone)
	}

	s.started = true
	s.logger.Info(ctx, "event indexer started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("schedule", s.schedule),
	)
	return nil
}

// Stop halts the schedule, drains pending changes and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping event indexer...")

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	if s.scheduler != nil {
		select {
		case <-s.scheduler.Stop().Done():
		case <-stopCtx.Done():
			s.logger.Warn(ctx, "scheduled reindex still running at shutdown")
		}
		s.scheduler = nil
	}

	if s.cancelBackfill != nil {
		s.cancelBackfill()
		select {
		case <-s.backfillDone:
		case <-stopCtx.Done():
			s.logger.Warn(ctx, "startup backfill still running at shutdown")
		}
		s.cancelBackfill, s.backfillDone = nil, nil
	}

	var firstErr error
	if err := s.workerPool.Shutdown(stopCtx); err != nil {
		firstErr = err
		s.logger.Error(ctx, "worker pool shutdown", logger.Error(err))
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	s.started = false
	s.logger.Info(ctx, "event indexer stopped")
	return firstErr
}

// Query returns public events in start order.
func (s *Service) Query(ctx context.Context, q repository.Query) ([]model.EventRecord, error) {
	return s.store.Query(ctx, q)
}

// Get returns the indexed record for postID.
func (s *Service) Get(ctx context.Context, postID int64) (model.EventRecord, error) {
	return s.store.Get(ctx, postID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":            s.started,
		"workerCount":        s.workerCount,
		"queueSize":          s.queueSize,
		"dedupeSize":         s.dedupeSize,
		"reindexConcurrency": s.reindexConcurrency,
		"reindexLimit":       s.reindexLimit,
		"schedule":           s.schedule,
		"backfill":           s.backfill,
	}

	if count, err := s.store.Count(ctx); err == nil {
		stats["indexedEvents"] = count
		metrics.UpdateIndexRecords(count)
	} else {
		s.logger.Warn(ctx, "count indexed events", logger.Error(err))
	}

	if s.started {
		queueLen := s.eventQueue.Len()
		stats["queueLength"] = queueLen
		stats["pendingChanges"] = s.deduper.Size()
		metrics.UpdateQueueSize(queueLen)
	}
	if last := s.LastBatch(); last != nil {
		stats["lastBatch"] = *last
	}
	return stats
}

// LastBatch returns the report of the most recent bulk reindex, if any.
func (s *Service) LastBatch() *BatchReport {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if s.lastBatch == nil {
		return nil
	}
	r := *s.lastBatch
	return &r
}
