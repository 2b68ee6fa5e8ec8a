package cwa

import "sort"

// DefaultMaxEntriesPerBatch bounds the deduplicated union of required entry
// ids across the tasks of one batch.
const DefaultMaxEntriesPerBatch = 200

// =============================================================================
// Task Specs & Batches
// =============================================================================

// TaskSpec describes one downstream task and the entries it needs.
type TaskSpec struct {
	ID               string
	Description      string
	RequiredEntryIDs []string
	Priority         int
}

// TaskBatch is a group of tasks whose combined unique entry set fits the
// configured bound.
type TaskBatch struct {
	ID    int
	Tasks []TaskSpec
	// UniqueEntryIDs is the deduplicated union of the tasks' required
	// entry ids, in first-seen order.
	UniqueEntryIDs []string
	// EntryCount is the size of the deduplicated union.
	EntryCount int
	// ExceedsLimit marks a single task whose own requirement set is larger
	// than the bound; such a task is isolated in its own batch instead of
	// failing the run.
	ExceedsLimit bool
}

// =============================================================================
// TaskBatcher
// =============================================================================

// BatcherConfig holds configuration for the TaskBatcher.
type BatcherConfig struct {
	MaxEntriesPerBatch int
	// PriorityFirst processes higher-priority tasks first. Task order is
	// otherwise preserved (the sort is stable).
	PriorityFirst bool
}

// DefaultBatcherConfig returns sensible defaults.
func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{MaxEntriesPerBatch: DefaultMaxEntriesPerBatch}
}

// TaskBatcher greedily partitions task specs into batches whose deduplicated
// union of required entry ids never exceeds the configured maximum.
type TaskBatcher struct {
	maxEntries    int
	priorityFirst bool
	nextBatchID   int
}

// NewTaskBatcher creates a batcher with the given configuration.
func NewTaskBatcher(cfg BatcherConfig) *TaskBatcher {
	maxEntries := cfg.MaxEntriesPerBatch
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntriesPerBatch
	}
	return &TaskBatcher{
		maxEntries:    maxEntries,
		priorityFirst: cfg.PriorityFirst,
	}
}

// MaxEntriesPerBatch returns the configured union bound.
func (b *TaskBatcher) MaxEntriesPerBatch() int {
	return b.maxEntries
}

// CreateBatches partitions tasks into batches. Before a task joins the
// running batch, the union of the batch's entry set with the task's required
// ids is computed; if the union still fits, the task joins and the batch
// adopts the union, otherwise the batch closes and the task seeds a new one.
// A task whose own requirement set exceeds the bound gets its own batch
// flagged ExceedsLimit. Batch ids are sequential per batcher.
func (b *TaskBatcher) CreateBatches(tasks []TaskSpec) []TaskBatch {
	if len(tasks) == 0 {
		return nil
	}

	ordered := tasks
	if b.priorityFirst {
		ordered = make([]TaskSpec, len(tasks))
		copy(ordered, tasks)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Priority > ordered[j].Priority
		})
	}

	var batches []TaskBatch
	current := b.newAccumulator()

	for _, task := range ordered {
		required := dedupeIDs(task.RequiredEntryIDs)

		if len(required) > b.maxEntries {
			if len(current.tasks) > 0 {
				batches = append(batches, b.close(current))
				current = b.newAccumulator()
			}
			oversized := b.newAccumulator()
			oversized.add(task, required)
			batch := b.close(oversized)
			batch.ExceedsLimit = true
			batches = append(batches, batch)
			continue
		}

		union := current.unionWith(required)
		if len(union) > b.maxEntries && len(current.tasks) > 0 {
			batches = append(batches, b.close(current))
			current = b.newAccumulator()
			union = current.unionWith(required)
		}
		current.adopt(task, union)
	}

	if len(current.tasks) > 0 {
		batches = append(batches, b.close(current))
	}
	return batches
}

// =============================================================================
// Accumulator
// =============================================================================

type batchAccumulator struct {
	tasks    []TaskSpec
	entrySet map[string]struct{}
	entryIDs []string
}

func (b *TaskBatcher) newAccumulator() *batchAccumulator {
	return &batchAccumulator{entrySet: make(map[string]struct{})}
}

// unionWith returns the batch's entry ids extended with the task's required
// ids, first-seen order, without mutating the accumulator.
func (a *batchAccumulator) unionWith(required []string) []string {
	union := make([]string, len(a.entryIDs), len(a.entryIDs)+len(required))
	copy(union, a.entryIDs)
	for _, id := range required {
		if _, ok := a.entrySet[id]; !ok {
			union = append(union, id)
		}
	}
	return union
}

// adopt adds the task and replaces the entry set with the precomputed union.
func (a *batchAccumulator) adopt(task TaskSpec, union []string) {
	a.tasks = append(a.tasks, task)
	a.entryIDs = union
	a.entrySet = make(map[string]struct{}, len(union))
	for _, id := range union {
		a.entrySet[id] = struct{}{}
	}
}

func (a *batchAccumulator) add(task TaskSpec, required []string) {
	a.adopt(task, a.unionWith(required))
}

func (b *TaskBatcher) close(a *batchAccumulator) TaskBatch {
	b.nextBatchID++
	return TaskBatch{
		ID:             b.nextBatchID,
		Tasks:          a.tasks,
		UniqueEntryIDs: a.entryIDs,
		EntryCount:     len(a.entryIDs),
	}
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
