package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	workerpool "github.com/okian/eventdex/internal/adapters/mq/worker"
	"github.com/okian/eventdex/internal/domain/dedupe"
	"github.com/okian/eventdex/internal/domain/model"
	"github.com/okian/eventdex/pkg/logger"
	"github.com/okian/eventdex/pkg/metrics"
)

// OnPostCreated schedules a reindex of a newly created post.
func (s *Service) OnPostCreated(ctx context.Context, postID int64) error {
	return s.notify(ctx, postID, model.ChangeCreated)
}

// OnPostEdited schedules a reindex of an edited post.
func (s *Service) OnPostEdited(ctx context.Context, postID int64) error {
	return s.notify(ctx, postID, model.ChangeEdited)
}

// OnPostDeleted schedules removal of a deleted post's record.
func (s *Service) OnPostDeleted(ctx context.Context, postID int64) error {
	return s.notify(ctx, postID, model.ChangeDeleted)
}

// notify enqueues a change unless one is already pending for postID.
// Creates and edits fold into a pending change since the worker re-reads the
// document; deletions are always enqueued.
func (s *Service) notify(ctx context.Context, postID int64, kind model.ChangeKind) error {
	if postID < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPostID, postID)
	}

	s.mu.RLock()
	started, q, d := s.started, s.eventQueue, s.deduper
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	if d.SeenAndRecord(ctx, postID) && kind != model.ChangeDeleted {
		metrics.RecordChangeCoalesced()
		s.logger.Debug(ctx, "change coalesced",
			logger.Int64("post_id", postID),
			logger.String("kind", string(kind)))
		return nil
	}

	c := model.Change{ID: uuid.NewString(), PostID: postID, Kind: kind}
	if err := q.Enqueue(ctx, c); err != nil {
		d.Unrecord(ctx, postID)
		s.logger.Warn(ctx, "change dropped",
			logger.String("change_id", c.ID),
			logger.Int64("post_id", postID),
			logger.Error(err))
		return fmt.Errorf("enqueue change for post %d: %w", postID, err)
	}
	return nil
}

// handler returns the worker callback for one run of the service. The run's
// deduper is bound here so workers never wait on mu, which Stop holds while
// it drains them.
func (s *Service) handler(d dedupe.Deduper) workerpool.HandlerFunc {
	return func(ctx context.Context, c model.Change) error {
		d.Unrecord(ctx, c.PostID)
		return s.apply(ctx, c)
	}
}

// apply performs one change against the index.
func (s *Service) apply(ctx context.Context, c model.Change) error {
	if c.Kind == model.ChangeDeleted {
		return s.Deindex(ctx, c.PostID)
	}
	_, err := s.Reindex(ctx, c.PostID)
	return err
}
