// Package retry runs an operation under a bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/datasynth/api/internal/config"
	"github.com/datasynth/api/internal/errs"
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultPolicy is three attempts, waiting 4s then up to 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 4 * time.Second,
		MaxInterval:     10 * time.Second,
		Multiplier:      2,
	}
}

// NotifyFunc observes a failed attempt before the policy sleeps.
type NotifyFunc func(attempt int, err error, wait time.Duration)

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds, returns a permanent error, or MaxAttempts
// is reached. Permanent errors are returned as-is; exhaustion yields a
// *errs.RetryExhaustedError wrapping the last failure.
func (p Policy) Do(ctx context.Context, name string, op func(ctx context.Context, attempt int) error, notify NotifyFunc) error {
	attempt := 0
	var last error

	wrapped := func() error {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		last = err
		if errs.IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var onFail backoff.Notify
	if notify != nil {
		onFail = func(err error, wait time.Duration) { notify(attempt, err, wait) }
	}

	err := backoff.RetryNotify(wrapped, p.backOff(ctx), onFail)
	if err == nil {
		return nil
	}
	if last != nil && errs.IsPermanent(last) {
		return last
	}
	if ctxErr := ctx.Err(); ctxErr != nil && last == nil {
		return ctxErr
	}
	if last == nil {
		last = err
	}
	return &errs.RetryExhaustedError{Op: name, Attempts: attempt, Err: last}
}

// ChunkPolicy is the retry policy for chunk generation.
func ChunkPolicy(cfg config.GenerationConfig) Policy {
	return Policy{
		MaxAttempts:     cfg.ChunkAttempts,
		InitialInterval: cfg.ChunkBackoff,
		MaxInterval:     cfg.ChunkBackoff * 5,
		Multiplier:      cfg.BackoffMultiplier,
	}
}

// SinkPolicy is the retry policy for sink writes.
func SinkPolicy(cfg config.GenerationConfig) Policy {
	return Policy{
		MaxAttempts:     cfg.SinkAttempts,
		InitialInterval: cfg.SinkBackoff,
		MaxInterval:     cfg.SinkBackoffMax,
		Multiplier:      cfg.BackoffMultiplier,
	}
}
