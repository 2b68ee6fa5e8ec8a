// Package cwa implements the Context Window Array: an addressable store of
// context entries with a summary-only working view, a bounded full-content
// implementation view, turn-based expiry, irreversible compression, and
// lexical relevance search.
package cwa

import (
	"strings"
	"time"
)

// EntryType classifies the provenance of a context entry.
type EntryType string

const (
	EntryTypeFile           EntryType = "file"
	EntryTypeCommand        EntryType = "command"
	EntryTypeCommandResult  EntryType = "command_result"
	EntryTypeTask           EntryType = "task"
	EntryTypeTaskResult     EntryType = "task_result"
	EntryTypeSearchResult   EntryType = "search_result"
	EntryTypeSummary        EntryType = "summary"
	EntryTypeContextRequest EntryType = "context_request"
)

var entryTypeTags = map[EntryType]struct{}{
	EntryTypeFile:           {},
	EntryTypeCommand:        {},
	EntryTypeCommandResult:  {},
	EntryTypeTask:           {},
	EntryTypeTaskResult:     {},
	EntryTypeSearchResult:   {},
	EntryTypeSummary:        {},
	EntryTypeContextRequest: {},
}

// Valid reports whether the type is one of the known tags.
func (t EntryType) Valid() bool {
	_, ok := entryTypeTags[t]
	return ok
}

// =============================================================================
// ContextEntry
// =============================================================================

// ContextEntry is a single addressable unit of context.
//
// Content and Summary are both optional, but at least one must be set at all
// times. TTL is a count of remaining turns: nil means the entry never expires,
// 0 means it is expired now. Once Compressed is true the content has been
// discarded and only the summary survives.
type ContextEntry struct {
	ID          string    `json:"id"`
	Type        EntryType `json:"entry_type"`
	Source      string    `json:"source"`
	Content     *string   `json:"content,omitempty"`
	Summary     *string   `json:"summary,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	References  []string  `json:"references,omitempty"`
	ParentID    string    `json:"parent_id,omitempty"`
	DerivedFrom []string  `json:"derived_from,omitempty"`
	Searchable  bool      `json:"searchable"`
	Compressed  bool      `json:"compressed"`
	TTL         *int      `json:"ttl,omitempty"`
	Priority    int       `json:"priority"`
}

// EntryParams holds the construction parameters for NewEntry.
type EntryParams struct {
	ID          string
	Type        EntryType
	Source      string
	Content     *string
	Summary     *string
	CreatedAt   time.Time
	References  []string
	ParentID    string
	DerivedFrom []string
	Searchable  bool
	TTL         *int
	Priority    int
}

// NewEntry validates params and constructs a ContextEntry.
func NewEntry(p EntryParams) (*ContextEntry, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, &ValidationError{Field: "id", Reason: "must be non-empty"}
	}
	if !p.Type.Valid() {
		return nil, &ValidationError{Field: "entry_type", Reason: "unknown type " + string(p.Type)}
	}
	if strings.TrimSpace(p.Source) == "" {
		return nil, &ValidationError{Field: "source", Reason: "must be non-empty"}
	}
	if p.Content == nil && p.Summary == nil {
		return nil, &ValidationError{Field: "content", Reason: "at least one of content/summary must be set"}
	}
	if p.TTL != nil && *p.TTL < 0 {
		return nil, &ValidationError{Field: "ttl", Reason: "must be >= 0"}
	}
	if err := validateIDList("references", p.References); err != nil {
		return nil, err
	}
	if err := validateIDList("derived_from", p.DerivedFrom); err != nil {
		return nil, err
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &ContextEntry{
		ID:          p.ID,
		Type:        p.Type,
		Source:      p.Source,
		Content:     p.Content,
		Summary:     p.Summary,
		CreatedAt:   createdAt,
		References:  cloneStrings(p.References),
		ParentID:    strings.TrimSpace(p.ParentID),
		DerivedFrom: cloneStrings(p.DerivedFrom),
		Searchable:  p.Searchable,
		TTL:         cloneIntPtr(p.TTL),
		Priority:    p.Priority,
	}, nil
}

func validateIDList(field string, ids []string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return &ValidationError{Field: field, Reason: "contains a blank id"}
		}
	}
	return nil
}

// =============================================================================
// State Transitions
// =============================================================================

// Compress discards the entry's content, keeping only the summary.
// Compressing an already-compressed entry is a no-op. An entry without a
// summary cannot be compressed.
func (e *ContextEntry) Compress() error {
	if e.Compressed {
		return nil
	}
	if e.Summary == nil {
		return &InvalidStateError{ID: e.ID, Reason: "cannot compress entry without summary"}
	}
	e.Content = nil
	e.Compressed = true
	return nil
}

// SetSummary replaces the entry's summary text.
func (e *ContextEntry) SetSummary(summary string) {
	e.Summary = &summary
}

// IsExpired reports whether the entry's TTL has reached zero.
// Entries without a TTL never expire.
func (e *ContextEntry) IsExpired() bool {
	return e.TTL != nil && *e.TTL == 0
}

// DecrementTTL consumes one turn of the entry's TTL. It is a no-op for
// entries without a TTL and never decrements below zero. Returns true if the
// TTL was actually decremented.
func (e *ContextEntry) DecrementTTL() bool {
	if e.TTL == nil || *e.TTL == 0 {
		return false
	}
	next := *e.TTL - 1
	e.TTL = &next
	return true
}

// ExtendTTL adds additional turns to the entry's TTL. An entry without a TTL
// gets one set to additional.
func (e *ContextEntry) ExtendTTL(additional int) {
	if e.TTL == nil {
		e.TTL = &additional
		return
	}
	next := *e.TTL + additional
	e.TTL = &next
}

// ContentText returns the content string, or "" if absent.
func (e *ContextEntry) ContentText() string {
	if e.Content == nil {
		return ""
	}
	return *e.Content
}

// SummaryText returns the summary string, or "" if absent.
func (e *ContextEntry) SummaryText() string {
	if e.Summary == nil {
		return ""
	}
	return *e.Summary
}

// SearchText returns the text the index should represent this entry by:
// content when present, summary otherwise.
func (e *ContextEntry) SearchText() string {
	if e.Content != nil {
		return *e.Content
	}
	return e.SummaryText()
}

// Clone creates a deep copy of the entry.
func (e *ContextEntry) Clone() *ContextEntry {
	if e == nil {
		return nil
	}

	clone := &ContextEntry{
		ID:         e.ID,
		Type:       e.Type,
		Source:     e.Source,
		CreatedAt:  e.CreatedAt,
		ParentID:   e.ParentID,
		Searchable: e.Searchable,
		Compressed: e.Compressed,
		Priority:   e.Priority,
	}

	clone.Content = cloneStringPtr(e.Content)
	clone.Summary = cloneStringPtr(e.Summary)
	clone.References = cloneStrings(e.References)
	clone.DerivedFrom = cloneStrings(e.DerivedFrom)
	clone.TTL = cloneIntPtr(e.TTL)

	return clone
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StringPtr returns a pointer to s. Convenience for building entries.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to n. Convenience for TTL values.
func IntPtr(n int) *int { return &n }
