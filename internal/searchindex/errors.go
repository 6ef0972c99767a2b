package searchindex

import "errors"

// Sentinel errors shared by index loading and persistence.
var (
	// ErrIndexMissing is returned when no persisted index file exists yet.
	ErrIndexMissing = errors.New("search index: missing")
	// ErrIndexCorrupt is returned when the persisted index fails to parse
	// or carries an incompatible schema version.
	ErrIndexCorrupt = errors.New("search index: corrupt")
	// ErrIndexLocked is returned when a writer cannot acquire the index
	// lock within the retry budget.
	ErrIndexLocked = errors.New("search index: locked")
)
