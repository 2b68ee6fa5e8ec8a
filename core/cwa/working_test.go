package cwa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workingFixture(t *testing.T) (*CentralContextStore, *WorkingContextView) {
	t.Helper()
	s := NewStore()
	v := NewWorkingContextView(s)
	return s, v
}

func TestWorkingBuildOrdersByPriority(t *testing.T) {
	s, v := workingFixture(t)

	for _, tc := range []struct {
		id       string
		priority int
	}{
		{"ctx_000001", 1},
		{"ctx_000002", 9},
		{"ctx_000003", 5},
	} {
		entry := mustEntry(t, EntryParams{
			ID: tc.id, Type: EntryTypeFile, Source: tc.id,
			Content: StringPtr("content " + tc.id), Summary: StringPtr("sum " + tc.id),
			Searchable: true, Priority: tc.priority,
		})
		_, err := s.Add(entry)
		require.NoError(t, err)
	}

	wc := v.Build(BuildOptions{})
	require.Equal(t, 3, wc.TotalCount)
	assert.Equal(t, "ctx_000002", wc.Entries[0].ID)
	assert.Equal(t, "ctx_000003", wc.Entries[1].ID)
	assert.Equal(t, "ctx_000001", wc.Entries[2].ID)
}

func TestWorkingBuildFilters(t *testing.T) {
	s, v := workingFixture(t)
	addEntry(t, s, "ctx_000001", "file content", "file summary")
	cmd := mustEntry(t, EntryParams{
		ID: "ctx_000002", Type: EntryTypeCommand, Source: "ls",
		Content: StringPtr("ls -la"), Summary: StringPtr("listing"),
	})
	_, err := s.Add(cmd)
	require.NoError(t, err)

	// Non-searchable entries are excluded by default.
	wc := v.Build(BuildOptions{})
	require.Equal(t, 1, wc.TotalCount)
	assert.Equal(t, "ctx_000001", wc.Entries[0].ID)

	wc = v.Build(BuildOptions{IncludeNonSearchable: true})
	assert.Equal(t, 2, wc.TotalCount)

	wc = v.Build(BuildOptions{
		Types:                []EntryType{EntryTypeCommand},
		IncludeNonSearchable: true,
	})
	require.Equal(t, 1, wc.TotalCount)
	assert.Equal(t, "ctx_000002", wc.Entries[0].ID)
}

func TestWorkingBuildTokenEstimate(t *testing.T) {
	s, v := workingFixture(t)
	addEntry(t, s, "ctx_000001", "irrelevant content", "12345678") // 8 chars -> 2 tokens

	wc := v.Build(BuildOptions{})
	assert.Equal(t, 2, wc.SummaryTokenEstimate)
}

func TestWorkingSearchRanksRelevantFirst(t *testing.T) {
	s, v := workingFixture(t)
	addEntry(t, s, "ctx_001", "user authentication and login flow for the auth service", "Auth")
	addEntry(t, s, "ctx_002", "database schema and connection pooling", "DB")
	addEntry(t, s, "ctx_003", "http handler and api routing", "API")

	hits := v.Search("user authentication login", 10, nil, 0)
	require.NotEmpty(t, hits)
	assert.Equal(t, "ctx_001", hits[0].ID)
	assert.Equal(t, "Auth", hits[0].Summary)
	assert.Greater(t, hits[0].Score, 0.0)
}
