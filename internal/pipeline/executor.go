package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/datasynth/api/internal/errs"
	"github.com/datasynth/api/internal/model"
	"github.com/datasynth/api/internal/retry"
)

// ChunkFunc produces the records of one chunk. attempt starts at 1.
type ChunkFunc func(ctx context.Context, chunk, size, attempt int) ([]model.Record, error)

// Executor runs chunk tasks on a bounded pool.
type Executor struct {
	Workers int
	Retry   retry.Policy
	Logger  *zap.Logger
}

type chunkOutput struct {
	index   int
	records []model.Record
}

// Run executes one task per chunk of plan. Completions are applied to tracker
// as they arrive, in whatever order they finish; the returned records follow
// plan order. The first chunk to exhaust its retries fails the whole run and
// no records are returned.
func (e *Executor) Run(ctx context.Context, plan []int, gen ChunkFunc, tracker *Tracker) ([]model.Record, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	outputs := make(chan chunkOutput, len(plan))
	done := make(chan error, 1)

	go func() {
		for i, size := range plan {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				records, err := e.runChunk(gctx, logger, i, size, gen)
				if err != nil {
					return err
				}
				outputs <- chunkOutput{index: i, records: records}
				return nil
			})
		}
		done <- g.Wait()
		close(outputs)
	}()

	byChunk := make([][]model.Record, len(plan))
	for out := range outputs {
		byChunk[out.index] = out.records
		if tracker != nil {
			tracker.Advance(len(out.records))
		}
	}

	if err := <-done; err != nil {
		return nil, err
	}

	total := 0
	for _, size := range plan {
		total += size
	}
	merged := make([]model.Record, 0, total)
	for _, records := range byChunk {
		merged = append(merged, records...)
	}
	return merged, nil
}

func (e *Executor) runChunk(ctx context.Context, logger *zap.Logger, index, size int, gen ChunkFunc) ([]model.Record, error) {
	var records []model.Record
	err := e.Retry.Do(ctx, fmt.Sprintf("chunk %d", index), func(ctx context.Context, attempt int) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &errs.ChunkGenerationError{Chunk: index, Err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, genErr := gen(ctx, index, size, attempt)
		if genErr != nil {
			return &errs.ChunkGenerationError{Chunk: index, Err: genErr}
		}
		if len(out) != size {
			return &errs.ChunkGenerationError{Chunk: index, Err: fmt.Errorf("produced %d records, want %d", len(out), size)}
		}
		records = out
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		logger.Warn("chunk generation failed, retrying",
			zap.Int("chunk", index),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	return records, err
}
