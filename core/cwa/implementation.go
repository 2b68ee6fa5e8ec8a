package cwa

import "sync"

// DefaultMaxImplementationEntries bounds how many full-content entries an
// implementation context may carry at once.
const DefaultMaxImplementationEntries = 10

// =============================================================================
// ImplementationContextView
// =============================================================================

// ImplementationContextView builds bounded full-content snapshots and tracks
// which entry ids are currently checked out to a worker. The lease set is
// cooperative bookkeeping for a single control flow, not a mutual-exclusion
// lock: it prevents double-counting, it does not arbitrate concurrent
// writers.
type ImplementationContextView struct {
	store      *CentralContextStore
	maxEntries int

	mu            sync.Mutex
	active        map[string]struct{}
	totalRequests int
	totalReleases int
}

// ImplementationConfig holds configuration for the view.
type ImplementationConfig struct {
	MaxEntries int
}

// DefaultImplementationConfig returns sensible defaults.
func DefaultImplementationConfig() ImplementationConfig {
	return ImplementationConfig{MaxEntries: DefaultMaxImplementationEntries}
}

// NewImplementationContextView creates a view over the given store.
func NewImplementationContextView(store *CentralContextStore, cfg ImplementationConfig) *ImplementationContextView {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxImplementationEntries
	}
	return &ImplementationContextView{
		store:      store,
		maxEntries: maxEntries,
		active:     make(map[string]struct{}),
	}
}

// EntryDetail is the full-content projection of one entry. Compressed
// entries carry a nil Content.
type EntryDetail struct {
	ID         string
	Type       EntryType
	Source     string
	Content    *string
	Summary    string
	References []string
	ParentID   string
	Compressed bool
}

// ImplementationContext is a bounded full-content snapshot.
type ImplementationContext struct {
	Entries            []EntryDetail
	EntryCount         int
	TotalTokenEstimate int
	EntryIDs           []string
}

// ImplBuildOptions controls an implementation-context build.
type ImplBuildOptions struct {
	// Decompress is accepted for parity with callers that maintain an
	// external content archive. Compression is irreversible inside the
	// core, so compressed entries always surface with nil content.
	Decompress bool
	// SkipValidation bypasses the entry-count bound.
	SkipValidation bool
}

// =============================================================================
// Building
// =============================================================================

// Build produces a full-content snapshot of the requested ids, preserving
// input order. Requesting more than the configured maximum fails with
// EntryBoundsError unless SkipValidation is set. Unknown ids are silently
// skipped.
func (v *ImplementationContextView) Build(ids []string, opts ImplBuildOptions) (*ImplementationContext, error) {
	if !opts.SkipValidation && len(ids) > v.maxEntries {
		return nil, &EntryBoundsError{Requested: len(ids), Max: v.maxEntries}
	}

	ctx := &ImplementationContext{}
	for _, id := range ids {
		entry, ok := v.store.Get(id)
		if !ok {
			continue
		}
		detail := detailEntry(entry)
		ctx.Entries = append(ctx.Entries, detail)
		ctx.EntryIDs = append(ctx.EntryIDs, entry.ID)
		if detail.Content != nil {
			ctx.TotalTokenEstimate += EstimateTokens(*detail.Content)
		} else {
			ctx.TotalTokenEstimate += EstimateTokens(detail.Summary)
		}
	}
	ctx.EntryCount = len(ctx.Entries)
	return ctx, nil
}

func detailEntry(entry *ContextEntry) EntryDetail {
	return EntryDetail{
		ID:         entry.ID,
		Type:       entry.Type,
		Source:     entry.Source,
		Content:    cloneStringPtr(entry.Content),
		Summary:    entry.SummaryText(),
		References: cloneStrings(entry.References),
		ParentID:   entry.ParentID,
		Compressed: entry.Compressed,
	}
}

// ValidateBounds reports whether the ids fit within the configured maximum.
func (v *ImplementationContextView) ValidateBounds(ids []string) bool {
	return len(ids) <= v.maxEntries
}

// MaxEntries returns the configured entry bound.
func (v *ImplementationContextView) MaxEntries() int {
	return v.maxEntries
}

// SplitIntoBatches partitions ids into chunks of at most MaxEntries,
// preserving order.
func (v *ImplementationContextView) SplitIntoBatches(ids []string) [][]string {
	if len(ids) == 0 {
		return nil
	}

	var batches [][]string
	for start := 0; start < len(ids); start += v.maxEntries {
		end := start + v.maxEntries
		if end > len(ids) {
			end = len(ids)
		}
		chunk := make([]string, end-start)
		copy(chunk, ids[start:end])
		batches = append(batches, chunk)
	}
	return batches
}

// =============================================================================
// Leasing
// =============================================================================

// RequestContext builds a snapshot and marks every returned entry id as
// leased.
func (v *ImplementationContextView) RequestContext(ids []string, skipValidation bool) (*ImplementationContext, error) {
	ctx, err := v.Build(ids, ImplBuildOptions{SkipValidation: skipValidation})
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range ctx.EntryIDs {
		v.active[id] = struct{}{}
	}
	v.totalRequests++
	return ctx, nil
}

// ReleaseContext clears the lease for the given ids, or for every leased id
// when ids is nil. Releasing an id that is not leased is a no-op.
func (v *ImplementationContextView) ReleaseContext(ids []string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if ids == nil {
		v.active = make(map[string]struct{})
	} else {
		for _, id := range ids {
			delete(v.active, id)
		}
	}
	v.totalReleases++
}

// IsInUse reports whether an id is currently leased.
func (v *ImplementationContextView) IsInUse(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.active[id]
	return ok
}

// ActiveEntries returns the set of currently leased ids.
func (v *ImplementationContextView) ActiveEntries() map[string]struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make(map[string]struct{}, len(v.active))
	for id := range v.active {
		out[id] = struct{}{}
	}
	return out
}

// UsageStats reports lease bookkeeping counters.
type UsageStats struct {
	ActiveCount   int
	TotalRequests int
	TotalReleases int
}

// GetUsageStats returns the current lease counters.
func (v *ImplementationContextView) GetUsageStats() UsageStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return UsageStats{
		ActiveCount:   len(v.active),
		TotalRequests: v.totalRequests,
		TotalReleases: v.totalReleases,
	}
}

// Request is the scoped-acquisition form of RequestContext/ReleaseContext:
// the lease over the built entries is released on every exit path, including
// a panic inside fn, so leases can never leak on error.
func (v *ImplementationContextView) Request(ids []string, skipValidation bool, fn func(*ImplementationContext) error) error {
	ctx, err := v.RequestContext(ids, skipValidation)
	if err != nil {
		return err
	}
	defer func() {
		// A nil id list means "release everything"; an empty build must
		// only release its own (empty) lease.
		leased := ctx.EntryIDs
		if leased == nil {
			leased = []string{}
		}
		v.ReleaseContext(leased)
	}()
	return fn(ctx)
}
