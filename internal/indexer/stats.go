package indexer

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Stats reports what a build or update pass did.
type Stats struct {
	FilesScanned     int
	DocumentsIndexed int
	DocumentsSkipped int // empty after parsing
	EmptyDeleted     int // empty session files removed under the opt-in policy
	FallbackIDs      int // ids not taken from a UUID-shaped filename
	ParseErrors      int
	RecoveredLines   int
	IndexSizeBytes   int64
	Duration         time.Duration
}

// Summary renders a human-readable one-line report, favoring go-humanize's
// comma-grouped counts and byte formatting over raw numbers.
func (s Stats) Summary() string {
	return humanize.Comma(int64(s.DocumentsIndexed)) + " documents indexed, " +
		humanize.Comma(int64(s.DocumentsSkipped)) + " skipped, " +
		humanize.Comma(int64(s.ParseErrors)) + " parse errors, " +
		humanize.Bytes(uint64(s.IndexSizeBytes)) + " index, " +
		s.Duration.Round(time.Millisecond).String() + " elapsed"
}
