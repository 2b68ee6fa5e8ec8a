package cwa

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultContentCacheSize is the default capacity of the content read cache.
const DefaultContentCacheSize = 1024

// DefaultSearchResults is the default maximum number of search results.
const DefaultSearchResults = 10

// =============================================================================
// Configuration
// =============================================================================

// StoreConfig holds configuration for the CentralContextStore.
type StoreConfig struct {
	ContentCacheSize int
	Logger           *slog.Logger
}

// DefaultStoreConfig returns sensible defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		ContentCacheSize: DefaultContentCacheSize,
	}
}

// =============================================================================
// CentralContextStore
// =============================================================================

// CentralContextStore is the single authoritative mapping from entry ID to
// ContextEntry. It owns entry identity lifetime; views never own entries,
// only read or lease them. All mutation goes through store methods; entries
// returned from accessors are deep copies.
type CentralContextStore struct {
	mu      sync.RWMutex
	entries map[string]*ContextEntry
	order   []string
	index   *VectorSearchIndex
	nextID  int

	contentCache *lru.Cache[string, string]
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64

	logger *slog.Logger
}

// TurnStats reports what a ProcessTurn pass did.
type TurnStats struct {
	Decremented int
	Removed     int
}

// StoreStats is a point-in-time summary of store state.
type StoreStats struct {
	EntryCount      int
	SearchableCount int
	CompressedCount int
	CacheHits       int64
	CacheMisses     int64
}

// NewCentralContextStore creates a store with the given configuration.
func NewCentralContextStore(cfg StoreConfig) *CentralContextStore {
	cacheSize := cfg.ContentCacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultContentCacheSize
	}
	cache, _ := lru.New[string, string](cacheSize)

	return &CentralContextStore{
		entries:      make(map[string]*ContextEntry),
		index:        NewVectorSearchIndex(),
		contentCache: cache,
		logger:       normalizeLogger(cfg.Logger),
	}
}

// NewStore creates a store with default configuration.
func NewStore() *CentralContextStore {
	return NewCentralContextStore(DefaultStoreConfig())
}

func normalizeLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// NextID reserves the next store-assigned entry id, e.g. "ctx_000123".
func (s *CentralContextStore) NextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return fmt.Sprintf("ctx_%06d", s.nextID)
}

// =============================================================================
// CRUD
// =============================================================================

// Add stores an entry and, if it is searchable, forwards it to the search
// index. Fails with DuplicateIDError when the id is already present.
func (s *CentralContextStore) Add(entry *ContextEntry) (string, error) {
	if entry == nil {
		return "", ErrNilEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ID]; exists {
		return "", &DuplicateIDError{ID: entry.ID}
	}

	stored := entry.Clone()
	s.entries[stored.ID] = stored
	s.order = append(s.order, stored.ID)

	if stored.Searchable {
		if err := s.index.Add(stored); err != nil {
			delete(s.entries, stored.ID)
			s.order = s.order[:len(s.order)-1]
			return "", err
		}
	}

	return stored.ID, nil
}

// Get returns a copy of the entry for id.
func (s *CentralContextStore) Get(id string) (*ContextEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// Contains reports whether id is present.
func (s *CentralContextStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

// GetAll returns copies of all entries in insertion order.
func (s *CentralContextStore) GetAll() []*ContextEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*ContextEntry, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.entries[id].Clone())
	}
	return all
}

// GetByType returns copies of all entries of the given type, in insertion
// order.
func (s *CentralContextStore) GetByType(t EntryType) []*ContextEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*ContextEntry
	for _, id := range s.order {
		if entry := s.entries[id]; entry.Type == t {
			matched = append(matched, entry.Clone())
		}
	}
	return matched
}

// Remove deletes an entry from the map and the index. Absent ids are not an
// error; Remove reports whether anything was deleted.
func (s *CentralContextStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

// Take removes an entry and returns a copy of it, or false if absent.
func (s *CentralContextStore) Take(id string) (*ContextEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	taken := entry.Clone()
	s.removeLocked(id)
	return taken, true
}

// RemoveMultiple deletes each id present and returns how many were removed.
func (s *CentralContextStore) RemoveMultiple(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, id := range ids {
		if s.removeLocked(id) {
			removed++
		}
	}
	return removed
}

// Clear drops every entry, the index, and the content cache.
func (s *CentralContextStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*ContextEntry)
	s.order = s.order[:0]
	s.index.Clear()
	s.contentCache.Purge()
}

func (s *CentralContextStore) removeLocked(id string) bool {
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	s.dropFromOrder(id)
	s.index.Remove(id)
	s.contentCache.Remove(id)
	return true
}

func (s *CentralContextStore) dropFromOrder(id string) {
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// =============================================================================
// Compression & Content Access
// =============================================================================

// Compress discards the entry's content, keeping the summary. Absent ids
// return (false, nil); an entry without a summary fails with
// InvalidStateError; an already-compressed entry is a no-op returning true.
func (s *CentralContextStore) Compress(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	if err := entry.Compress(); err != nil {
		return false, err
	}

	s.contentCache.Remove(id)
	if entry.Searchable {
		// The index now represents the entry by its summary.
		if err := s.index.Update(entry); err != nil {
			s.logger.Warn("reindex after compress failed", "id", id, "error", err)
		}
	}
	return true, nil
}

// SetSummary sets or replaces the entry's summary. Absent ids return false.
// When the entry is represented in the index by its summary (no content,
// which includes every compressed entry), the index is updated to match.
func (s *CentralContextStore) SetSummary(id, summary string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return false
	}
	entry.SetSummary(summary)

	if entry.Searchable && entry.Content == nil {
		if err := s.index.Update(entry); err != nil {
			s.logger.Warn("reindex after summary update failed", "id", id, "error", err)
		}
	}
	return true
}

// GetContent returns the entry's full content. Absent ids return
// ("", false, nil); compressed entries fail with CompressedContentError.
// Reads go through a bounded LRU cache.
func (s *CentralContextStore) GetContent(id string) (string, bool, error) {
	if content, ok := s.contentCache.Get(id); ok {
		s.cacheHits.Add(1)
		return content, true, nil
	}

	s.mu.RLock()
	entry, ok := s.entries[id]
	if !ok {
		s.mu.RUnlock()
		return "", false, nil
	}
	if entry.Compressed {
		s.mu.RUnlock()
		return "", false, &CompressedContentError{ID: id}
	}
	if entry.Content == nil {
		s.mu.RUnlock()
		return "", false, nil
	}
	content := *entry.Content
	// Populate the cache before dropping the lock so a concurrent Compress
	// cannot slip in and leave discarded content cached.
	s.contentCache.Add(id, content)
	s.mu.RUnlock()

	s.cacheMisses.Add(1)
	return content, true, nil
}

// GetSummary returns the entry's summary regardless of compression state.
func (s *CentralContextStore) GetSummary(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return "", false
	}
	return entry.SummaryText(), true
}

// =============================================================================
// TTL Processing
// =============================================================================

// ProcessTTL decrements every entry with a positive TTL by one turn and
// returns how many were decremented. Entries without a TTL, or already at
// zero, are untouched.
func (s *CentralContextStore) ProcessTTL() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	decremented := 0
	for _, entry := range s.entries {
		if entry.DecrementTTL() {
			decremented++
		}
	}
	return decremented
}

// CleanupExpired removes every entry whose TTL is zero, from both the map
// and the index, returning how many were removed.
func (s *CentralContextStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, entry := range s.entries {
		if entry.IsExpired() {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		s.removeLocked(id)
	}
	return len(expired)
}

// ProcessTurn runs one turn boundary: TTL decrement followed by expiry
// cleanup.
func (s *CentralContextStore) ProcessTurn() TurnStats {
	return TurnStats{
		Decremented: s.ProcessTTL(),
		Removed:     s.CleanupExpired(),
	}
}

// ExtendTTL adds additional turns to an entry's TTL; an entry without a TTL
// gets one set to additional. Returns false if the id is absent.
func (s *CentralContextStore) ExtendTTL(id string, additional int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return false
	}
	entry.ExtendTTL(additional)
	return true
}

// =============================================================================
// Search
// =============================================================================

// SearchOptions controls a store search.
type SearchOptions struct {
	MaxResults     int
	Types          []EntryType
	MinScore       float64
	IncludeContent bool
}

// SearchResult is one scored, metadata-joined hit. Content is attached only
// when the search asked for it.
type SearchResult struct {
	ID         string
	Type       EntryType
	Source     string
	Summary    string
	Content    *string
	Score      float64
	References []string
	ParentID   string
	Compressed bool
}

// Search delegates to the index and joins hits back to entry metadata,
// ordered by descending score. By default content is omitted; set
// IncludeContent for the full text. Empty queries return no results and
// non-searchable entries never appear.
func (s *CentralContextStore) Search(query string, opts SearchOptions) []SearchResult {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultSearchResults
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := s.index.Search(query, maxResults, opts.Types, opts.MinScore)
	if len(hits) == 0 {
		return nil
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		entry, ok := s.entries[hit.ID]
		if !ok {
			s.logger.Warn("index hit missing from store", "id", hit.ID)
			continue
		}
		result := SearchResult{
			ID:         entry.ID,
			Type:       entry.Type,
			Source:     entry.Source,
			Summary:    entry.SummaryText(),
			Score:      hit.Score,
			References: cloneStrings(entry.References),
			ParentID:   entry.ParentID,
			Compressed: entry.Compressed,
		}
		if opts.IncludeContent {
			result.Content = cloneStringPtr(entry.Content)
		}
		results = append(results, result)
	}
	return results
}

// =============================================================================
// Statistics
// =============================================================================

// Len returns the number of stored entries.
func (s *CentralContextStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns a point-in-time summary of store state.
func (s *CentralContextStore) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StoreStats{
		EntryCount:  len(s.entries),
		CacheHits:   s.cacheHits.Load(),
		CacheMisses: s.cacheMisses.Load(),
	}
	for _, entry := range s.entries {
		if entry.Searchable {
			stats.SearchableCount++
		}
		if entry.Compressed {
			stats.CompressedCount++
		}
	}
	return stats
}
