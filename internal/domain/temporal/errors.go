package temporal

import "errors"

// ErrNoStart means no tag parsed and the document has no creation time.
var ErrNoStart = errors.New("no start time derivable")
