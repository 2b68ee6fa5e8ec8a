package cwa

import (
	"fmt"
	"time"
)

// Record is the plain keyed form of a ContextEntry used by external
// persistence collaborators. The core has no durable storage of its own; it
// only guarantees that FromRecord(ToRecord(e)) reproduces e field-for-field,
// including nil/absent distinctions.
type Record struct {
	ID          string   `json:"id" yaml:"id"`
	EntryType   string   `json:"entry_type" yaml:"entry_type"`
	Source      string   `json:"source" yaml:"source"`
	Content     *string  `json:"content,omitempty" yaml:"content,omitempty"`
	Summary     *string  `json:"summary,omitempty" yaml:"summary,omitempty"`
	CreatedAt   string   `json:"created_at" yaml:"created_at"`
	References  []string `json:"references,omitempty" yaml:"references,omitempty"`
	Searchable  bool     `json:"searchable" yaml:"searchable"`
	Compressed  bool     `json:"compressed" yaml:"compressed"`
	TTL         *int     `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	ParentID    string   `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	DerivedFrom []string `json:"derived_from,omitempty" yaml:"derived_from,omitempty"`
	Priority    int      `json:"priority" yaml:"priority"`
}

// ToRecord emits the entry as a Record. Timestamps serialize as RFC 3339
// with nanosecond precision so the round trip is exact.
func (e *ContextEntry) ToRecord() Record {
	return Record{
		ID:          e.ID,
		EntryType:   string(e.Type),
		Source:      e.Source,
		Content:     cloneStringPtr(e.Content),
		Summary:     cloneStringPtr(e.Summary),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339Nano),
		References:  cloneStrings(e.References),
		Searchable:  e.Searchable,
		Compressed:  e.Compressed,
		TTL:         cloneIntPtr(e.TTL),
		ParentID:    e.ParentID,
		DerivedFrom: cloneStrings(e.DerivedFrom),
		Priority:    e.Priority,
	}
}

// FromRecord reconstructs a ContextEntry from its record form. An
// unrecognized entry type tag fails with UnknownEntryTypeError, and a
// compressed record that still carries content is rejected; other field
// validation matches NewEntry.
func FromRecord(r Record) (*ContextEntry, error) {
	typ := EntryType(r.EntryType)
	if !typ.Valid() {
		return nil, &UnknownEntryTypeError{Tag: r.EntryType}
	}
	if r.Compressed && r.Content != nil {
		return nil, &ValidationError{Field: "compressed", Reason: "record must not retain content"}
	}

	createdAt, err := parseRecordTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}

	entry, err := NewEntry(EntryParams{
		ID:          r.ID,
		Type:        typ,
		Source:      r.Source,
		Content:     cloneStringPtr(r.Content),
		Summary:     cloneStringPtr(r.Summary),
		CreatedAt:   createdAt,
		References:  cloneStrings(r.References),
		ParentID:    r.ParentID,
		DerivedFrom: cloneStrings(r.DerivedFrom),
		Searchable:  r.Searchable,
		TTL:         cloneIntPtr(r.TTL),
		Priority:    r.Priority,
	})
	if err != nil {
		return nil, err
	}

	entry.Compressed = r.Compressed
	return entry, nil
}

func parseRecordTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at: %w", err)
	}
	return t, nil
}
