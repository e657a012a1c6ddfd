package normalize

import (
	"errors"
	"fmt"
)

// ErrRejected is the parent of every rejection. A rejected document is not
// an eligible public event and must not have a record in the index.
var ErrRejected = errors.New("document rejected")

var (
	ErrDeleted     = fmt.Errorf("%w: deleted", ErrRejected)
	ErrNotVisible  = fmt.Errorf("%w: thread not visible", ErrRejected)
	ErrEmptyBody   = fmt.Errorf("%w: empty body", ErrRejected)
	ErrNotPublic   = fmt.Errorf("%w: not public", ErrRejected)
	ErrNoStartTime = fmt.Errorf("%w: no start time", ErrRejected)
)

// Reason returns a short metric label for a rejection, or "" for other errors.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrDeleted):
		return "deleted"
	case errors.Is(err, ErrNotVisible):
		return "not_visible"
	case errors.Is(err, ErrEmptyBody):
		return "empty_body"
	case errors.Is(err, ErrNotPublic):
		return "not_public"
	case errors.Is(err, ErrNoStartTime):
		return "no_start_time"
	case errors.Is(err, ErrRejected):
		return "other"
	}
	return ""
}
