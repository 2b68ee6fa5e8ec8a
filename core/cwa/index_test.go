package cwa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexEntry(t *testing.T, idx *VectorSearchIndex, id, text string) *ContextEntry {
	t.Helper()
	entry := mustEntry(t, EntryParams{
		ID:         id,
		Type:       EntryTypeFile,
		Source:     id,
		Content:    &text,
		Searchable: true,
	})
	require.NoError(t, idx.Add(entry))
	return entry
}

func TestIndexIgnoresNonSearchable(t *testing.T) {
	idx := NewVectorSearchIndex()
	entry := mustEntry(t, EntryParams{
		ID:      "ctx_000001",
		Type:    EntryTypeCommand,
		Source:  "ls",
		Content: StringPtr("ls -la"),
	})

	require.NoError(t, idx.Add(entry))
	assert.Equal(t, 0, idx.Len())
	assert.False(t, idx.Contains("ctx_000001"))
}

func TestIndexDuplicateID(t *testing.T) {
	idx := NewVectorSearchIndex()
	entry := indexEntry(t, idx, "ctx_000001", "alpha beta")

	err := idx.Add(entry)
	var derr *DuplicateIDError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "ctx_000001", derr.ID)
}

func TestIndexVocabularyGrowthRebuildsVectors(t *testing.T) {
	idx := NewVectorSearchIndex()
	indexEntry(t, idx, "ctx_000001", "alpha beta")

	before, ok := idx.Vector("ctx_000001")
	require.True(t, ok)
	assert.Len(t, before, 2)

	// New terms grow the shared vocabulary; every stored vector picks up
	// the new dimensions.
	indexEntry(t, idx, "ctx_000002", "gamma delta")

	after, ok := idx.Vector("ctx_000001")
	require.True(t, ok)
	assert.Len(t, after, 4)
}

func TestIndexSearchRanksByCosine(t *testing.T) {
	idx := NewVectorSearchIndex()
	indexEntry(t, idx, "ctx_001", "user authentication and login flow for the auth service")
	indexEntry(t, idx, "ctx_002", "database connection pooling and migrations")
	indexEntry(t, idx, "ctx_003", "http handler routing for api requests")

	hits := idx.Search("user authentication login", 10, nil, 0)
	require.NotEmpty(t, hits)
	assert.Equal(t, "ctx_001", hits[0].ID)

	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestIndexSearchEmptyQuery(t *testing.T) {
	idx := NewVectorSearchIndex()
	indexEntry(t, idx, "ctx_000001", "alpha beta")

	assert.Empty(t, idx.Search("", 10, nil, 0))
	assert.Empty(t, idx.Search("   ", 10, nil, 0))
}

func TestIndexSearchEmptyIndex(t *testing.T) {
	idx := NewVectorSearchIndex()
	assert.Empty(t, idx.Search("anything", 10, nil, 0))
}

func TestIndexSearchUnseenTermsHaveZeroWeight(t *testing.T) {
	idx := NewVectorSearchIndex()
	indexEntry(t, idx, "ctx_000001", "alpha beta")

	// A query made entirely of unseen terms has a degenerate vector.
	assert.Empty(t, idx.Search("zeta omega", 10, nil, 0))

	// Mixed queries only weight the known terms; the vocabulary never
	// grows from a query.
	hits := idx.Search("alpha zeta", 10, nil, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, "ctx_000001", hits[0].ID)
	vec, _ := idx.Vector("ctx_000001")
	assert.Len(t, vec, 2)
}

func TestIndexSearchFilters(t *testing.T) {
	idx := NewVectorSearchIndex()
	indexEntry(t, idx, "ctx_000001", "alpha beta")
	taskText := "alpha task"
	task := mustEntry(t, EntryParams{
		ID:         "ctx_000002",
		Type:       EntryTypeTask,
		Source:     "task-1",
		Content:    &taskText,
		Searchable: true,
	})
	require.NoError(t, idx.Add(task))

	hits := idx.Search("alpha", 10, []EntryType{EntryTypeTask}, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, "ctx_000002", hits[0].ID)

	hits = idx.Search("alpha", 10, nil, 0.99)
	for _, hit := range hits {
		assert.GreaterOrEqual(t, hit.Score, 0.99)
	}
}

func TestIndexSearchMaxResults(t *testing.T) {
	idx := NewVectorSearchIndex()
	indexEntry(t, idx, "ctx_000001", "alpha one")
	indexEntry(t, idx, "ctx_000002", "alpha two")
	indexEntry(t, idx, "ctx_000003", "alpha three")

	hits := idx.Search("alpha", 2, nil, 0)
	assert.Len(t, hits, 2)
}

func TestIndexRemoveAndUpdate(t *testing.T) {
	idx := NewVectorSearchIndex()
	entry := indexEntry(t, idx, "ctx_000001", "alpha beta")

	idx.Remove("ctx_000001")
	assert.False(t, idx.Contains("ctx_000001"))
	idx.Remove("ctx_000001") // absent is a no-op

	entry.Content = StringPtr("gamma delta")
	require.NoError(t, idx.Update(entry))
	require.True(t, idx.Contains("ctx_000001"))

	hits := idx.Search("gamma", 10, nil, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, "ctx_000001", hits[0].ID)
}

func TestIndexUsesSummaryWhenContentAbsent(t *testing.T) {
	idx := NewVectorSearchIndex()
	entry := mustEntry(t, EntryParams{
		ID:         "ctx_000001",
		Type:       EntryTypeSummary,
		Source:     "digest",
		Summary:    StringPtr("eviction policy notes"),
		Searchable: true,
	})
	require.NoError(t, idx.Add(entry))

	hits := idx.Search("eviction", 10, nil, 0)
	require.Len(t, hits, 1)
}
