package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pubchemscan/internal/model"
)

// DefaultConcurrency is the number of concurrent lookups when none is set.
const DefaultConcurrency = 4

// BatchResult is the outcome of one lookup in a batch.
type BatchResult struct {
	// CID is the requested compound identifier.
	CID int

	// Lookup is the result, nil when Err is set.
	Lookup *model.Lookup

	// Err is the lookup failure, if any.
	Err error
}

// BatchProcessor handles concurrent lookups of multiple compounds.
type BatchProcessor struct {
	// source performs each lookup. It must be safe for concurrent use.
	source CompoundSource

	// concurrency is the maximum number of concurrent lookups.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent lookups.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(source CompoundSource, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		source:      source,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch looks up every CID and returns one result per input, in
// input order. Per-CID failures are recorded in the results. The error
// return is non-nil only when ctx was cancelled before every lookup started.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, cids []int) ([]BatchResult, error) {
	results := make([]BatchResult, len(cids))
	done := make([]bool, len(cids))
	var mu sync.Mutex

	err := bp.ProcessBatchWithCallback(ctx, cids, func(r BatchResult, index int) {
		mu.Lock()
		results[index] = r
		done[index] = true
		mu.Unlock()
	})

	for i := range results {
		if !done[i] {
			results[i] = BatchResult{CID: cids[i], Err: context.Cause(ctx)}
		}
	}
	return results, err
}

// ProcessBatchWithCallback looks up every CID and calls callback as each
// completes, from the goroutine that ran it. index is the position of the
// CID in cids. The callback must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	cids []int,
	callback func(result BatchResult, index int),
) error {
	bp.logger.Info("starting batch lookup",
		"total", len(cids),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, cid := range cids {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Debug("looking up compound",
				"cid", cid,
				"index", i+1,
				"total", len(cids),
			)

			lookup, err := bp.source.Lookup(ctx, cid)
			if err != nil {
				bp.logger.Warn("lookup failed",
					"cid", cid,
					"error", err,
				)
			}

			// Individual failures are reported through the callback, not the group.
			callback(BatchResult{CID: cid, Lookup: lookup, Err: err}, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch lookup complete",
		"total", len(cids),
		"elapsed", time.Since(startTime),
	)
	return err
}
