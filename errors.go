package wwise

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHeader is returned when a tag does not match or section
	// sizes are inconsistent.
	ErrMalformedHeader = errors.New("malformed header")
	// ErrTruncatedInput is returned when a read runs past the end of the source.
	ErrTruncatedInput = errors.New("truncated input")
	// ErrMissingIndexForData is returned when an operation needs both the
	// DIDX and DATA chunks and one of them is absent.
	ErrMissingIndexForData = errors.New("index and data chunks are both required")
	// ErrReplaceTargetNotFound is returned by Replace for an ID the bank does
	// not hold.
	ErrReplaceTargetNotFound = errors.New("replace target not found")
	// ErrHierarchyMergeRequiresBothSides is returned when merging banks where
	// one side has no HIRC chunk.
	ErrHierarchyMergeRequiresBothSides = errors.New("hierarchy merge requires both sides")
	// ErrEmptyData is returned when offsets are corrected over no WEM entries.
	ErrEmptyData = errors.New("no wem entries to lay out")
	// ErrUnsafeName is returned for an archive entry whose output name would
	// leave the extraction folder.
	ErrUnsafeName = errors.New("unsafe entry name")
	// ErrWemNotFound is returned when a requested WEM ID is not in the bank.
	ErrWemNotFound = errors.New("wem not found")
)

// EntryError describes a single archive table entry that could not be read.
// The rest of the archive is still extracted.
type EntryError struct {
	Table TableKind
	Index int
	ID    uint64
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s entry %d (id %d): %v", e.Table, e.Index, e.ID, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
