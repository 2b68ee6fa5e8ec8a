package cwa

import (
	"errors"
	"fmt"
)

var (
	// ErrNilEntry is returned when a nil entry is passed to Add.
	ErrNilEntry = errors.New("context entry cannot be nil")

	// ErrNilHandler is returned when ExecuteBatch is given a nil handler.
	ErrNilHandler = errors.New("batch handler cannot be nil")
)

// ValidationError reports a malformed ContextEntry construction.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid context entry: %s %s", e.Field, e.Reason)
}

// DuplicateIDError reports an Add with an id already present in the store or
// index.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("entry %q already exists", e.ID)
}

// InvalidStateError reports an operation that the entry's current state does
// not permit, such as compressing an entry that has no summary.
type InvalidStateError struct {
	ID     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("entry %q: %s", e.ID, e.Reason)
}

// CompressedContentError reports a content read against a compressed entry.
type CompressedContentError struct {
	ID string
}

func (e *CompressedContentError) Error() string {
	return fmt.Sprintf("content of entry %q is unavailable: entry is compressed", e.ID)
}

// EntryBoundsError reports an implementation-context build that requested
// more entries than the configured maximum.
type EntryBoundsError struct {
	Requested int
	Max       int
}

func (e *EntryBoundsError) Error() string {
	return fmt.Sprintf("requested %d entries, maximum allowed is %d", e.Requested, e.Max)
}

// UnknownEntryTypeError reports a record with an unrecognized entry type tag.
type UnknownEntryTypeError struct {
	Tag string
}

func (e *UnknownEntryTypeError) Error() string {
	return fmt.Sprintf("unknown entry type tag %q", e.Tag)
}
