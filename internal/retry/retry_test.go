package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasynth/api/internal/errs"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), "write", func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("connection reset")
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cause := errors.New("database unavailable")
	var notified []int

	err := fastPolicy(3).Do(context.Background(), "relational", func(ctx context.Context, attempt int) error {
		return &errs.SinkWriteError{Sink: "RELATIONAL", Err: cause}
	}, func(attempt int, err error, wait time.Duration) {
		notified = append(notified, attempt)
	})

	var exhausted *errs.RetryExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "relational", exhausted.Op)
	assert.ErrorIs(t, err, cause)

	var sinkErr *errs.SinkWriteError
	assert.True(t, errors.As(err, &sinkErr))
	assert.Equal(t, []int{1, 2}, notified)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), "chunk", func(ctx context.Context, attempt int) error {
		calls++
		return &errs.UnsupportedTypeError{Field: "area", Type: "GEOJSON"}
	}, nil)

	assert.Equal(t, 1, calls)
	var unsupported *errs.UnsupportedTypeError
	assert.True(t, errors.As(err, &unsupported))
	var exhausted *errs.RetryExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestDo_WaitsBetweenAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialInterval: 20 * time.Millisecond, MaxInterval: 30 * time.Millisecond, Multiplier: 2}
	start := time.Now()
	_ = p.Do(context.Background(), "slow", func(ctx context.Context, attempt int) error {
		return errors.New("nope")
	}, nil)

	// 20ms then min(40ms, 30ms)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Policy{MaxAttempts: 3, InitialInterval: time.Second, MaxInterval: time.Second, Multiplier: 2}.
		Do(ctx, "cancelled", func(ctx context.Context, attempt int) error {
			calls++
			return errors.New("boom")
		}, nil)

	require.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}
