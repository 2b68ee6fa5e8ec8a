package cwa

import "sort"

// =============================================================================
// WorkingContextView
// =============================================================================

// WorkingContextView builds summary-only projections of the store for a
// coordinating process with a small context budget. The projection type has
// no content field at all, so content can never leak through this view.
type WorkingContextView struct {
	store *CentralContextStore
}

// NewWorkingContextView creates a view over the given store.
func NewWorkingContextView(store *CentralContextStore) *WorkingContextView {
	return &WorkingContextView{store: store}
}

// EntrySummary is the summary-only projection of one entry.
type EntrySummary struct {
	ID         string
	Type       EntryType
	Source     string
	Summary    string
	References []string
	ParentID   string
	Compressed bool
	Priority   int
}

// WorkingContext is a bounded snapshot of summaries.
type WorkingContext struct {
	Entries []EntrySummary
	// TotalCount is the number of entries in the snapshot.
	TotalCount int
	// SummaryTokenEstimate is a coarse chars/4 estimate of the combined
	// summary text. Informative only, never a hard limit.
	SummaryTokenEstimate int
}

// BuildOptions controls which entries a working context includes.
type BuildOptions struct {
	Types                []EntryType
	IncludeNonSearchable bool
}

// Build produces a summaries-only snapshot ordered by descending priority.
func (v *WorkingContextView) Build(opts BuildOptions) WorkingContext {
	typeSet := makeTypeSet(opts.Types)

	var summaries []EntrySummary
	tokens := 0
	for _, entry := range v.store.GetAll() {
		if !opts.IncludeNonSearchable && !entry.Searchable {
			continue
		}
		if typeSet != nil {
			if _, ok := typeSet[entry.Type]; !ok {
				continue
			}
		}
		summary := summarizeEntry(entry)
		tokens += EstimateTokens(summary.Summary)
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Priority > summaries[j].Priority
	})

	return WorkingContext{
		Entries:              summaries,
		TotalCount:           len(summaries),
		SummaryTokenEstimate: tokens,
	}
}

// summarizeEntry converts an entry to its summary projection. The conversion
// never copies content.
func summarizeEntry(entry *ContextEntry) EntrySummary {
	return EntrySummary{
		ID:         entry.ID,
		Type:       entry.Type,
		Source:     entry.Source,
		Summary:    entry.SummaryText(),
		References: cloneStrings(entry.References),
		ParentID:   entry.ParentID,
		Compressed: entry.Compressed,
		Priority:   entry.Priority,
	}
}

// ScoredSummary pairs a summary projection with its relevance score.
type ScoredSummary struct {
	EntrySummary
	Score float64
}

// Search runs a relevance search through the store and returns summary-only
// hits ordered by descending score.
func (v *WorkingContextView) Search(query string, maxResults int, types []EntryType, minScore float64) []ScoredSummary {
	results := v.store.Search(query, SearchOptions{
		MaxResults: maxResults,
		Types:      types,
		MinScore:   minScore,
	})

	scored := make([]ScoredSummary, 0, len(results))
	for _, r := range results {
		scored = append(scored, ScoredSummary{
			EntrySummary: EntrySummary{
				ID:         r.ID,
				Type:       r.Type,
				Source:     r.Source,
				Summary:    r.Summary,
				References: r.References,
				ParentID:   r.ParentID,
				Compressed: r.Compressed,
			},
			Score: r.Score,
		})
	}
	return scored
}
