package cwa

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/viterin/vek/vek32"
)

// =============================================================================
// VectorSearchIndex
// =============================================================================

// VectorSearchIndex provides lexical relevance search over entry text using
// L2-normalized term-frequency vectors and cosine similarity.
//
// The vocabulary is shared across all indexed documents. Adding a document
// that introduces new terms changes the vector dimension and triggers a full
// rebuild of every stored vector; that O(n) cost is a deliberate simplicity
// tradeoff. Queries never grow the vocabulary: terms unseen at index time
// contribute zero weight.
//
// The index is not safe for concurrent use; CentralContextStore serializes
// access to it.
type VectorSearchIndex struct {
	vocabulary map[string]int
	docs       map[string]*indexedDoc
}

type indexedDoc struct {
	id         string
	entryType  EntryType
	termCounts map[string]int
	vector     []float32
}

// IndexHit is one scored search result from the index.
type IndexHit struct {
	ID    string
	Score float64
}

// NewVectorSearchIndex creates an empty index.
func NewVectorSearchIndex() *VectorSearchIndex {
	return &VectorSearchIndex{
		vocabulary: make(map[string]int),
		docs:       make(map[string]*indexedDoc),
	}
}

// =============================================================================
// Indexing
// =============================================================================

// Add indexes an entry's search text. Non-searchable entries are ignored.
// Adding an id that is already indexed fails with DuplicateIDError.
func (idx *VectorSearchIndex) Add(entry *ContextEntry) error {
	if entry == nil {
		return ErrNilEntry
	}
	if !entry.Searchable {
		return nil
	}
	if _, exists := idx.docs[entry.ID]; exists {
		return &DuplicateIDError{ID: entry.ID}
	}

	doc := &indexedDoc{
		id:         entry.ID,
		entryType:  entry.Type,
		termCounts: countTerms(tokenize(entry.SearchText())),
	}
	idx.docs[entry.ID] = doc

	if idx.growVocabulary(doc.termCounts) {
		idx.rebuildVectors()
		return nil
	}

	doc.vector = idx.buildVector(doc.termCounts)
	return nil
}

// Remove drops an entry from the index. Absent ids are a no-op. The
// vocabulary is never shrunk; stale dimensions simply carry zero weight.
func (idx *VectorSearchIndex) Remove(id string) {
	delete(idx.docs, id)
}

// Update reindexes an entry, equivalent to Remove followed by Add.
func (idx *VectorSearchIndex) Update(entry *ContextEntry) error {
	if entry == nil {
		return ErrNilEntry
	}
	idx.Remove(entry.ID)
	return idx.Add(entry)
}

// Contains reports whether an id is indexed.
func (idx *VectorSearchIndex) Contains(id string) bool {
	_, ok := idx.docs[id]
	return ok
}

// Len returns the number of indexed documents.
func (idx *VectorSearchIndex) Len() int {
	return len(idx.docs)
}

// Vector returns a copy of the stored vector for id.
func (idx *VectorSearchIndex) Vector(id string) ([]float32, bool) {
	doc, ok := idx.docs[id]
	if !ok {
		return nil, false
	}
	v := make([]float32, len(doc.vector))
	copy(v, doc.vector)
	return v, true
}

// Clear drops all documents and the vocabulary.
func (idx *VectorSearchIndex) Clear() {
	idx.vocabulary = make(map[string]int)
	idx.docs = make(map[string]*indexedDoc)
}

// =============================================================================
// Search
// =============================================================================

// Search scores every indexed document against the query by cosine
// similarity, filters by the optional type set and minScore, and returns up
// to maxResults hits ordered by descending score. An empty query, an empty
// index, or a query made entirely of unseen terms yields no results.
func (idx *VectorSearchIndex) Search(query string, maxResults int, types []EntryType, minScore float64) []IndexHit {
	if len(idx.docs) == 0 {
		return nil
	}

	queryVec := idx.buildVector(countTerms(tokenize(query)))
	if queryVec == nil {
		return nil
	}

	typeSet := makeTypeSet(types)

	hits := make([]IndexHit, 0, len(idx.docs))
	for _, doc := range idx.docs {
		if typeSet != nil {
			if _, ok := typeSet[doc.entryType]; !ok {
				continue
			}
		}
		if doc.vector == nil {
			continue
		}
		// Both vectors are pre-normalized, so the dot product is the
		// cosine similarity.
		score := float64(vek32.Dot(queryVec, doc.vector))
		if score < minScore {
			continue
		}
		hits = append(hits, IndexHit{ID: doc.id, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if maxResults > 0 && len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return hits
}

func makeTypeSet(types []EntryType) map[EntryType]struct{} {
	if len(types) == 0 {
		return nil
	}
	set := make(map[EntryType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

// =============================================================================
// Vector Construction
// =============================================================================

// growVocabulary assigns dimensions to unseen terms and reports whether any
// were added.
func (idx *VectorSearchIndex) growVocabulary(termCounts map[string]int) bool {
	grew := false
	for term := range termCounts {
		if _, ok := idx.vocabulary[term]; !ok {
			idx.vocabulary[term] = len(idx.vocabulary)
			grew = true
		}
	}
	return grew
}

// buildVector maps term counts onto the current vocabulary and L2-normalizes
// the result. Terms outside the vocabulary are dropped. Returns nil when no
// known term carries weight.
func (idx *VectorSearchIndex) buildVector(termCounts map[string]int) []float32 {
	if len(idx.vocabulary) == 0 || len(termCounts) == 0 {
		return nil
	}

	vec := make([]float32, len(idx.vocabulary))
	known := false
	for term, count := range termCounts {
		dim, ok := idx.vocabulary[term]
		if !ok {
			continue
		}
		vec[dim] = float32(count)
		known = true
	}
	if !known {
		return nil
	}

	norm := math.Sqrt(float64(vek32.Dot(vec, vec)))
	if norm == 0 {
		return nil
	}
	vek32.MulNumber_Inplace(vec, float32(1/norm))
	return vec
}

func (idx *VectorSearchIndex) rebuildVectors() {
	for _, doc := range idx.docs {
		doc.vector = idx.buildVector(doc.termCounts)
	}
}

// =============================================================================
// Tokenization
// =============================================================================

// tokenize lowercases text and splits it into word tokens on any
// non-letter/digit rune.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func countTerms(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	return counts
}
