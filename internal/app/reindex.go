package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/eventdex/internal/adapters/source"
	"github.com/okian/eventdex/internal/domain/normalize"
	"github.com/okian/eventdex/pkg/logger"
	"github.com/okian/eventdex/pkg/metrics"
)

// Outcome describes what a single reindex did to the index.
type Outcome string

const (
	OutcomeIndexed  Outcome = "indexed"
	OutcomeRejected Outcome = "rejected"
)

// BatchReport summarises one bulk reindex.
type BatchReport struct {
	BatchID    string        `json:"batch_id"`
	Candidates int           `json:"candidates"`
	Indexed    int64         `json:"indexed"`
	Rejected   int64         `json:"rejected"`
	Failed     int64         `json:"failed"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
}

// Reindex rebuilds the record for postID from scratch. A document that is
// missing or not an eligible public event has its prior record removed and
// yields OutcomeRejected with a nil error. Errors come from reading the
// source or writing the store; on error the previous record is untouched.
func (s *Service) Reindex(ctx context.Context, postID int64) (Outcome, error) {
	if postID < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPostID, postID)
	}
	start := time.Now()
	defer func() {
		metrics.RecordReindexLatency(float64(time.Since(start).Milliseconds()))
	}()

	doc, err := s.source.Document(ctx, postID)
	if errors.Is(err, source.ErrNotFound) {
		return s.reject(ctx, postID, "missing")
	}
	if err != nil {
		metrics.RecordDocumentFailed()
		return "", fmt.Errorf("load post %d: %w", postID, err)
	}

	rec, err := s.normalizer.Normalize(ctx, doc)
	if errors.Is(err, normalize.ErrRejected) {
		s.logger.Debug(ctx, "document rejected",
			logger.Int64("post_id", postID),
			logger.String("reason", normalize.Reason(err)))
		return s.reject(ctx, postID, normalize.Reason(err))
	}
	if err != nil {
		metrics.RecordDocumentFailed()
		return "", fmt.Errorf("normalize post %d: %w", postID, err)
	}

	if err := s.store.Upsert(ctx, rec); err != nil {
		metrics.RecordDocumentFailed()
		metrics.RecordErrorByComponent("store", "upsert")
		return "", fmt.Errorf("index post %d: %w", postID, err)
	}
	metrics.RecordDocumentIndexed()
	return OutcomeIndexed, nil
}

func (s *Service) reject(ctx context.Context, postID int64, reason string) (Outcome, error) {
	metrics.RecordDocumentRejected(reason)
	if err := s.Deindex(ctx, postID); err != nil {
		return "", err
	}
	return OutcomeRejected, nil
}

// Deindex removes the record for postID. Removing an absent record is not
// an error.
func (s *Service) Deindex(ctx context.Context, postID int64) error {
	removed, err := s.store.Delete(ctx, postID)
	if err != nil {
		metrics.RecordDocumentFailed()
		metrics.RecordErrorByComponent("store", "delete")
		return fmt.Errorf("deindex post %d: %w", postID, err)
	}
	if removed {
		metrics.RecordDocumentDeindexed()
		s.logger.Debug(ctx, "event deindexed", logger.Int64("post_id", postID))
	}
	return nil
}

// ReindexAll reindexes every candidate document the source lists, up to the
// configured limit, with bounded parallelism. Per-document failures are
// logged and counted; only listing the candidates can fail the batch.
func (s *Service) ReindexAll(ctx context.Context) (BatchReport, error) {
	report := BatchReport{BatchID: uuid.NewString(), StartedAt: time.Now()}
	log := s.logger.Named("batch")

	ids, err := s.source.Candidates(ctx, s.reindexLimit)
	if err != nil {
		return report, fmt.Errorf("list candidates: %w", err)
	}
	report.Candidates = len(ids)
	log.Info(ctx, "bulk reindex started",
		logger.String("batch_id", report.BatchID),
		logger.Int("candidates", len(ids)))

	var indexed, rejected, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.reindexConcurrency)
	for _, id := range ids {
		if ctx.Err() != nil {
			failed.Add(1)
			continue
		}
		g.Go(func() error {
			outcome, err := s.Reindex(ctx, id)
			switch {
			case err != nil:
				failed.Add(1)
				log.Error(ctx, "reindex failed",
					logger.String("batch_id", report.BatchID),
					logger.Int64("post_id", id),
					logger.Error(err))
			case outcome == OutcomeRejected:
				rejected.Add(1)
			default:
				indexed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Indexed = indexed.Load()
	report.Rejected = rejected.Load()
	report.Failed = failed.Load()
	report.Duration = time.Since(report.StartedAt)
	metrics.RecordBatchDuration(report.Duration.Seconds())

	s.batchMu.Lock()
	s.lastBatch = &report
	s.batchMu.Unlock()

	log.Info(ctx, "bulk reindex finished",
		logger.String("batch_id", report.BatchID),
		logger.Int64("indexed", report.Indexed),
		logger.Int64("rejected", report.Rejected),
		logger.Int64("failed", report.Failed),
		logger.Duration("duration", report.Duration))
	return report, ctx.Err()
}

// runBackfill fills the index once after Start and closes done.
func (s *Service) runBackfill(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	if s.backfill == BackfillAuto {
		n, err := s.store.Count(ctx)
		if err != nil {
			s.logger.Error(ctx, "startup backfill: count index", logger.Error(err))
			return
		}
		if n > 0 {
			s.logger.Info(ctx, "startup backfill skipped", logger.Int("indexed_events", n))
			return
		}
	}
	if _, err := s.ReindexAll(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error(ctx, "startup backfill", logger.Error(err))
	}
}

func (s *Service) scheduledReindex() {
	if _, err := s.ReindexAll(context.Background()); err != nil {
		s.logger.Error(context.Background(), "scheduled reindex", logger.Error(err))
	}
}
