package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasynth/api/internal/errs"
	"github.com/datasynth/api/internal/model"
	"github.com/datasynth/api/internal/retry"
)

func quickRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Multiplier: 2}
}

// chunkRecords tags every record with its chunk so order can be checked.
func chunkRecords(chunk, size int) []model.Record {
	out := make([]model.Record, size)
	for i := range out {
		rec := model.NewRecord(2)
		rec.Set("chunk", int64(chunk))
		rec.Set("row", int64(i))
		out[i] = rec
	}
	return out
}

func TestExecutor_MergesInSubmissionOrder(t *testing.T) {
	plan := []int{5, 5, 5, 5, 3}
	var seen []model.Progress
	var mu sync.Mutex
	tr := NewTracker(23, len(plan), func(p model.Progress) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})

	exec := &Executor{Workers: 3, Retry: quickRetry()}
	records, err := exec.Run(context.Background(), plan, func(ctx context.Context, chunk, size, attempt int) ([]model.Record, error) {
		// later chunks finish first
		time.Sleep(time.Duration(len(plan)-chunk) * 5 * time.Millisecond)
		return chunkRecords(chunk, size), nil
	}, tr)
	require.NoError(t, err)
	require.Len(t, records, 23)

	offset := 0
	for chunk, size := range plan {
		for i := 0; i < size; i++ {
			assert.Equal(t, int64(chunk), records[offset+i].Get("chunk"))
			assert.Equal(t, int64(i), records[offset+i].Get("row"))
		}
		offset += size
	}

	snap := tr.Snapshot()
	assert.Equal(t, 23, snap.Current)
	assert.Equal(t, 5, snap.CompletedChunks)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i].Current, seen[i-1].Current)
	}
}

func TestExecutor_BoundedConcurrency(t *testing.T) {
	var running, peak int32
	exec := &Executor{Workers: 2, Retry: quickRetry()}

	_, err := exec.Run(context.Background(), []int{1, 1, 1, 1, 1, 1}, func(ctx context.Context, chunk, size, attempt int) ([]model.Record, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return chunkRecords(chunk, size), nil
	}, nil)

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestExecutor_RetriesFailingChunk(t *testing.T) {
	var attempts int32
	exec := &Executor{Workers: 2, Retry: quickRetry()}

	records, err := exec.Run(context.Background(), []int{2, 2}, func(ctx context.Context, chunk, size, attempt int) ([]model.Record, error) {
		if chunk == 1 {
			atomic.AddInt32(&attempts, 1)
			if attempt < 3 {
				return nil, errors.New("transient")
			}
		}
		return chunkRecords(chunk, size), nil
	}, NewTracker(4, 2))

	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestExecutor_ExhaustedChunkFailsRun(t *testing.T) {
	exec := &Executor{Workers: 2, Retry: quickRetry()}

	records, err := exec.Run(context.Background(), []int{2, 2, 2}, func(ctx context.Context, chunk, size, attempt int) ([]model.Record, error) {
		if chunk == 2 {
			return nil, errors.New("always broken")
		}
		return chunkRecords(chunk, size), nil
	}, NewTracker(6, 3))

	assert.Nil(t, records)
	var exhausted *errs.RetryExhaustedError
	require.True(t, errors.As(err, &exhausted))
	var chunkErr *errs.ChunkGenerationError
	require.True(t, errors.As(err, &chunkErr))
	assert.Equal(t, 2, chunkErr.Chunk)
}

func TestExecutor_PanicBecomesChunkError(t *testing.T) {
	exec := &Executor{Workers: 1, Retry: retry.Policy{MaxAttempts: 1}}

	_, err := exec.Run(context.Background(), []int{1}, func(ctx context.Context, chunk, size, attempt int) ([]model.Record, error) {
		panic("boom")
	}, nil)

	var chunkErr *errs.ChunkGenerationError
	require.True(t, errors.As(err, &chunkErr))
	assert.Contains(t, err.Error(), "panic: boom")
}
