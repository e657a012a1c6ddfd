// Package repository holds the event index: one record per source post,
// queryable in start-time order.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/eventdex/internal/domain/model"
)

// Query selects records in ascending start order.
type Query struct {
	// Visibility filters on the record's visibility; empty matches all.
	Visibility string
	// After, when set, drops events starting before it.
	After *time.Time
	// Limit caps the result size and must be positive.
	Limit int
}

// Store is the event index.
type Store interface {
	// Upsert inserts rec or replaces the whole record with the same PostID.
	// Invalid records are refused with ErrInvalidRecord.
	Upsert(ctx context.Context, rec model.EventRecord) error
	// Delete removes the record for postID and reports whether one existed.
	Delete(ctx context.Context, postID int64) (bool, error)
	// Get returns the record for postID or ErrNotFound.
	Get(ctx context.Context, postID int64) (model.EventRecord, error)
	// Query returns matching records ordered by StartsAt then PostID.
	Query(ctx context.Context, q Query) ([]model.EventRecord, error)
	// Count returns the number of indexed records.
	Count(ctx context.Context) (int, error)
	Close() error
}

// Validate checks the invariants every stored record must satisfy.
func Validate(rec model.EventRecord) error {
	switch {
	case rec.PostID <= 0:
		return fmt.Errorf("%w: post id %d", ErrInvalidRecord, rec.PostID)
	case rec.Visibility != model.VisibilityPublic:
		return fmt.Errorf("%w: post %d visibility %q", ErrInvalidRecord, rec.PostID, rec.Visibility)
	case rec.StartsAt.IsZero():
		return fmt.Errorf("%w: post %d has no start", ErrInvalidRecord, rec.PostID)
	case rec.EndsAt.Before(rec.StartsAt):
		return fmt.Errorf("%w: post %d ends before it starts", ErrInvalidRecord, rec.PostID)
	case rec.Coordinate != nil && !rec.Coordinate.Valid():
		return fmt.Errorf("%w: post %d coordinate out of range", ErrInvalidRecord, rec.PostID)
	}
	return nil
}

func validateQuery(q Query) error {
	if q.Limit < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, q.Limit)
	}
	return nil
}

// cloneRecord detaches rec from caller-owned pointers.
func cloneRecord(rec model.EventRecord) model.EventRecord {
	if rec.Coordinate != nil {
		c := *rec.Coordinate
		rec.Coordinate = &c
	}
	return rec
}
