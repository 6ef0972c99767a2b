package indexer

import "errors"

// ErrCancelled is returned when a build or update is cancelled before it
// completes. No partial index is written; the previously persisted index
// stays in place.
var ErrCancelled = errors.New("indexer: cancelled")
