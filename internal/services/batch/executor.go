// Package batch executes record writes against the external store in fixed-size
// chunks on a bounded pool, keeping results positionally aligned with their inputs.
package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"github.com/ternarybob/pricing-engine/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultChunkSize is the per-call record limit of the external store
	DefaultChunkSize = 200

	// DefaultPoolSize is the number of chunks in flight at once
	DefaultPoolSize = 20
)

// ProgressSink receives a progress percentage after each completed chunk.
// A nil sink disables reporting.
type ProgressSink func(progress float64)

// Range is the slice of the overall 0-100 progress scale a call reports into
type Range struct {
	Low  float64
	High float64
}

// Full is the whole progress scale
var Full = Range{Low: 0, High: 100}

// Call performs one bulk operation for a chunk of items
type Call[T any] func(ctx context.Context, chunk []T) ([]models.CreateResult, error)

// Executor splits work into chunks and runs them on a bounded pool
type Executor struct {
	chunkSize int
	poolSize  int
	logger    arbor.ILogger
}

// NewExecutor creates an executor. Non-positive sizes fall back to the defaults.
func NewExecutor(chunkSize, poolSize int, logger arbor.ILogger) *Executor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	return &Executor{
		chunkSize: chunkSize,
		poolSize:  poolSize,
		logger:    logger,
	}
}

// ChunkSize returns the configured chunk size
func (e *Executor) ChunkSize() int { return e.chunkSize }

// PoolSize returns the configured pool size
func (e *Executor) PoolSize() int { return e.poolSize }

// Create bulk-creates requests through store
func (e *Executor) Create(ctx context.Context, store interfaces.RecordStore, requests []models.CreateRequest, r Range, sink ProgressSink) []models.CreateResult {
	return Execute(ctx, e, requests, store.Create, r, sink)
}

// Delete bulk-deletes ids through store
func (e *Executor) Delete(ctx context.Context, store interfaces.RecordStore, ids []string, r Range, sink ProgressSink) []models.CreateResult {
	return Execute(ctx, e, ids, store.Delete, r, sink)
}

// Execute runs call over consecutive chunks of items with at most PoolSize chunks in flight,
// blocking until every chunk has finished. The returned slice has one result per item in
// input order, whatever order the chunks complete in. A chunk whose call fails is filled with
// failure results; sibling chunks are unaffected.
func Execute[T any](ctx context.Context, e *Executor, items []T, call Call[T], r Range, sink ProgressSink) []models.CreateResult {
	if len(items) == 0 {
		return []models.CreateResult{}
	}

	chunks := Chunk(items, e.chunkSize)
	totalChunks := len(chunks)
	results := make([][]models.CreateResult, totalChunks)

	var (
		mu        sync.Mutex
		completed int
	)

	g := new(errgroup.Group)
	g.SetLimit(e.poolSize)

	for i, chunk := range chunks {
		start := i * e.chunkSize

		e.logger.Debug().
			Int("chunk", i+1).
			Int("from", start).
			Int("to", start+len(chunk)-1).
			Int("count", len(chunk)).
			Msg("Submitting chunk")

		g.Go(func() error {
			results[i] = runChunk(ctx, e.logger, i, chunk, call)

			// Counter update and emission happen together so reported progress never goes backwards
			mu.Lock()
			defer mu.Unlock()
			completed++
			if sink != nil {
				sink(Progress(r, completed, totalChunks))
			}
			return nil
		})
	}

	// Tasks never return errors; failures are recorded in the results
	_ = g.Wait()

	all := make([]models.CreateResult, 0, len(items))
	for _, chunkResults := range results {
		all = append(all, chunkResults...)
	}
	return all
}

// runChunk performs one bulk call and always returns exactly len(chunk) results
func runChunk[T any](ctx context.Context, logger arbor.ILogger, index int, chunk []T, call Call[T]) (out []models.CreateResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Int("chunk", index+1).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Recovered from panic in chunk")
			out = failAll(len(chunk), fmt.Errorf("%w: panic: %v", models.ErrChunkCreate, r))
		}
	}()

	chunkResults, err := call(ctx, chunk)
	if err != nil {
		logger.Error().
			Err(err).
			Int("chunk", index+1).
			Int("count", len(chunk)).
			Msg("Error creating batch")
		return failAll(len(chunk), fmt.Errorf("%w: %w", models.ErrChunkCreate, err))
	}

	if len(chunkResults) != len(chunk) {
		logger.Error().
			Int("chunk", index+1).
			Int("expected", len(chunk)).
			Int("received", len(chunkResults)).
			Msg("Bulk call returned a mismatched result count")
		return align(chunkResults, len(chunk))
	}

	return chunkResults
}

// Chunk splits items into consecutive slices of at most size elements.
// The slices share the backing array of items.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Progress scales completed/total into r
func Progress(r Range, completed, total int) float64 {
	if total <= 0 {
		return r.Low
	}
	return r.Low + (float64(completed)/float64(total))*(r.High-r.Low)
}

// failAll builds n failure results for a chunk-level error
func failAll(n int, err error) []models.CreateResult {
	out := make([]models.CreateResult, n)
	for i := range out {
		out[i] = models.FailedResult("CHUNK_CREATE_FAILED", err.Error())
	}
	return out
}

// align truncates or pads results to n so positional correlation survives a bad response
func align(results []models.CreateResult, n int) []models.CreateResult {
	if len(results) > n {
		return results[:n]
	}
	out := make([]models.CreateResult, n)
	copy(out, results)
	for i := len(results); i < n; i++ {
		out[i] = models.FailedResult("MISSING_RESULT", "no result returned for record")
	}
	return out
}
