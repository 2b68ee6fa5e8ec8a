package cwa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func newTestEntry(t *testing.T, id string, content, summary string) *ContextEntry {
	t.Helper()

	params := EntryParams{
		ID:         id,
		Type:       EntryTypeFile,
		Source:     "src/" + id + ".go",
		Searchable: true,
	}
	if content != "" {
		params.Content = &content
	}
	if summary != "" {
		params.Summary = &summary
	}

	entry, err := NewEntry(params)
	require.NoError(t, err)
	return entry
}

// =============================================================================
// Construction
// =============================================================================

func TestNewEntryValidation(t *testing.T) {
	tests := []struct {
		name   string
		params EntryParams
	}{
		{
			name: "blank id",
			params: EntryParams{
				ID: "  ", Type: EntryTypeFile, Source: "a.go",
				Content: StringPtr("x"),
			},
		},
		{
			name: "blank source",
			params: EntryParams{
				ID: "ctx_000001", Type: EntryTypeFile, Source: "",
				Content: StringPtr("x"),
			},
		},
		{
			name: "unknown type",
			params: EntryParams{
				ID: "ctx_000001", Type: EntryType("bogus"), Source: "a.go",
				Content: StringPtr("x"),
			},
		},
		{
			name: "neither content nor summary",
			params: EntryParams{
				ID: "ctx_000001", Type: EntryTypeFile, Source: "a.go",
			},
		},
		{
			name: "negative ttl",
			params: EntryParams{
				ID: "ctx_000001", Type: EntryTypeFile, Source: "a.go",
				Content: StringPtr("x"), TTL: IntPtr(-1),
			},
		},
		{
			name: "blank reference id",
			params: EntryParams{
				ID: "ctx_000001", Type: EntryTypeFile, Source: "a.go",
				Content: StringPtr("x"), References: []string{"ctx_000002", " "},
			},
		},
		{
			name: "blank derived_from id",
			params: EntryParams{
				ID: "ctx_000001", Type: EntryTypeFile, Source: "a.go",
				Content: StringPtr("x"), DerivedFrom: []string{""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEntry(tt.params)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestNewEntryDefaults(t *testing.T) {
	entry, err := NewEntry(EntryParams{
		ID:      "ctx_000001",
		Type:    EntryTypeFile,
		Source:  "a.go",
		Content: StringPtr("package a"),
	})
	require.NoError(t, err)

	assert.False(t, entry.CreatedAt.IsZero())
	assert.Nil(t, entry.TTL)
	assert.False(t, entry.Compressed)
	assert.Empty(t, entry.ParentID)
}

func TestNewEntryNormalizesBlankParentID(t *testing.T) {
	entry, err := NewEntry(EntryParams{
		ID:       "ctx_000001",
		Type:     EntryTypeCommandResult,
		Source:   "ls",
		Content:  StringPtr("out"),
		ParentID: "   ",
	})
	require.NoError(t, err)
	assert.Empty(t, entry.ParentID)
}

// =============================================================================
// Compression
// =============================================================================

func TestCompressIsOneWayAndIdempotent(t *testing.T) {
	entry := newTestEntry(t, "ctx_000001", "full content here", "summary")

	require.NoError(t, entry.Compress())
	assert.True(t, entry.Compressed)
	assert.Nil(t, entry.Content)

	// A second compress is a no-op, not an error.
	require.NoError(t, entry.Compress())
	assert.True(t, entry.Compressed)
	assert.Nil(t, entry.Content)
	assert.Equal(t, "summary", entry.SummaryText())
}

func TestCompressWithoutSummaryFails(t *testing.T) {
	entry := newTestEntry(t, "ctx_000001", "full content", "")

	err := entry.Compress()
	var serr *InvalidStateError
	require.ErrorAs(t, err, &serr)
	assert.False(t, entry.Compressed)
	assert.NotNil(t, entry.Content)
}

// =============================================================================
// TTL
// =============================================================================

func TestIsExpired(t *testing.T) {
	entry := newTestEntry(t, "ctx_000001", "x", "s")

	entry.TTL = nil
	assert.False(t, entry.IsExpired())

	entry.TTL = IntPtr(2)
	assert.False(t, entry.IsExpired())

	entry.TTL = IntPtr(0)
	assert.True(t, entry.IsExpired())
}

func TestDecrementTTLFloorsAtZero(t *testing.T) {
	entry := newTestEntry(t, "ctx_000001", "x", "s")
	entry.TTL = IntPtr(1)

	assert.True(t, entry.DecrementTTL())
	assert.Equal(t, 0, *entry.TTL)

	// Repeated decrements at zero never go negative.
	assert.False(t, entry.DecrementTTL())
	assert.False(t, entry.DecrementTTL())
	assert.Equal(t, 0, *entry.TTL)
}

func TestDecrementTTLNoopWithoutTTL(t *testing.T) {
	entry := newTestEntry(t, "ctx_000001", "x", "s")

	assert.False(t, entry.DecrementTTL())
	assert.Nil(t, entry.TTL)
}

func TestExtendTTL(t *testing.T) {
	entry := newTestEntry(t, "ctx_000001", "x", "s")

	entry.ExtendTTL(3)
	require.NotNil(t, entry.TTL)
	assert.Equal(t, 3, *entry.TTL)

	entry.ExtendTTL(2)
	assert.Equal(t, 5, *entry.TTL)
}

// =============================================================================
// Clone
// =============================================================================

func TestCloneIsDeep(t *testing.T) {
	entry := newTestEntry(t, "ctx_000001", "content", "summary")
	entry.References = []string{"ctx_000002"}
	entry.TTL = IntPtr(4)
	entry.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	clone := entry.Clone()
	require.Equal(t, entry, clone)

	clone.References[0] = "ctx_000099"
	*clone.TTL = 1
	clone.SetSummary("changed")

	assert.Equal(t, "ctx_000002", entry.References[0])
	assert.Equal(t, 4, *entry.TTL)
	assert.Equal(t, "summary", entry.SummaryText())
}
