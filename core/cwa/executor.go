package cwa

import (
	"fmt"
	"log/slog"
	"time"
)

// =============================================================================
// BatchExecutor
// =============================================================================

// BatchHandler processes the tasks of one batch against a leased
// full-content context and returns per-task results keyed by task id.
type BatchHandler func(ctx *ImplementationContext, tasks []TaskSpec) (map[string]any, error)

// BatchResult is the outcome of executing one batch.
type BatchResult struct {
	BatchID     int
	TaskResults map[string]any
	Success     bool
	Err         error
	DurationMs  int64
	EntryCount  int
	TotalTokens int
}

// BatchExecutor runs a caller handler against each batch with a correctly
// leased and released ImplementationContextView. Handler failures are
// isolated per batch; a failing handler never leaks leased entries.
type BatchExecutor struct {
	view   *ImplementationContextView
	logger *slog.Logger
}

// NewBatchExecutor creates an executor over the given view.
func NewBatchExecutor(view *ImplementationContextView, logger *slog.Logger) *BatchExecutor {
	return &BatchExecutor{
		view:   view,
		logger: normalizeLogger(logger),
	}
}

// ExecuteBatch leases the batch's unique entry ids, invokes the handler, and
// records its outcome. Handler errors and panics become a failed result
// rather than propagating, as does an EntryBoundsError from the lease
// acquisition itself.
func (e *BatchExecutor) ExecuteBatch(batch TaskBatch, handler BatchHandler) BatchResult {
	started := time.Now()
	result := BatchResult{
		BatchID:    batch.ID,
		EntryCount: batch.EntryCount,
	}

	if handler == nil {
		result.Err = ErrNilHandler
		result.DurationMs = time.Since(started).Milliseconds()
		return result
	}

	err := e.view.Request(batch.UniqueEntryIDs, false, func(ctx *ImplementationContext) error {
		result.TotalTokens = ctx.TotalTokenEstimate
		taskResults, handlerErr := e.invokeHandler(ctx, batch.Tasks, handler)
		if handlerErr != nil {
			return handlerErr
		}
		result.TaskResults = taskResults
		return nil
	})

	result.DurationMs = time.Since(started).Milliseconds()
	if err != nil {
		result.Err = err
		e.logger.Warn("batch execution failed", "batch_id", batch.ID, "error", err)
		return result
	}

	result.Success = true
	return result
}

// invokeHandler calls the handler, converting a panic into an error so the
// surrounding lease still releases and the run can continue.
func (e *BatchExecutor) invokeHandler(ctx *ImplementationContext, tasks []TaskSpec, handler BatchHandler) (results map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch handler panicked: %v", r)
		}
	}()
	return handler(ctx, tasks)
}

// ExecuteAll runs batches sequentially in order. With continueOnError false,
// execution stops after the first failing batch; the returned results cover
// only the batches that ran, including the failed one.
func (e *BatchExecutor) ExecuteAll(batches []TaskBatch, handler BatchHandler, continueOnError bool) []BatchResult {
	results := make([]BatchResult, 0, len(batches))
	for _, batch := range batches {
		result := e.ExecuteBatch(batch, handler)
		results = append(results, result)
		if !result.Success && !continueOnError {
			break
		}
	}
	return results
}

// MergeTaskResults flattens per-batch task results into one map. On key
// collision, later batches overwrite earlier ones.
func MergeTaskResults(results []BatchResult) map[string]any {
	merged := make(map[string]any)
	for _, result := range results {
		for taskID, value := range result.TaskResults {
			merged[taskID] = value
		}
	}
	return merged
}
