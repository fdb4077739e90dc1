package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/datasynth/api/internal/errs"
	"github.com/datasynth/api/internal/model"
	"github.com/datasynth/api/internal/retry"
	"github.com/datasynth/api/internal/sink"
	"github.com/datasynth/api/internal/synth"
)

// Persister writes merged records to the requested sinks.
type Persister interface {
	Persist(ctx context.Context, req sink.Request) sink.Outcome
}

// Job is one fully validated generation request.
type Job struct {
	Schema       model.TableSchema
	RecordCount  int
	OutputFormat model.OutputFormat
	Storage      model.StorageOptions
	Seed         uint64
	IDPools      synth.IDPools
}

// Runner drives a job from preview to aggregated result.
type Runner struct {
	ChunkSize  int
	Workers    int
	ChunkRetry retry.Policy
	Persister  Persister
	Logger     *zap.Logger
}

// Run generates the preview record, fans chunk generation out over the
// executor, persists the merged records and aggregates the result. tracker
// ends in SUCCESS or FAILURE.
func (r *Runner) Run(ctx context.Context, job Job, tracker *Tracker) (*model.GenerationResult, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	started := time.Now()
	schema := job.Schema
	schema.Normalize()

	sample, err := synth.GenerateRecord(synth.NewSource(job.Seed), schema.Fields, job.IDPools)
	if err != nil {
		tracker.Fail(errs.Describe(err))
		return nil, err
	}

	chunkSize := ClampChunkSize(r.ChunkSize)
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	plan := PlanChunks(job.RecordCount, chunkSize)
	tracker.Start(fmt.Sprintf("Generating %d records in %d chunks", job.RecordCount, len(plan)))

	exec := &Executor{Workers: workers, Retry: r.ChunkRetry, Logger: logger}
	records, err := exec.Run(ctx, plan, func(ctx context.Context, chunk, size, attempt int) ([]model.Record, error) {
		src := synth.NewSource(synth.ChunkSeed(job.Seed, chunk, attempt))
		return synth.GenerateRecords(src, &schema, size, job.IDPools)
	}, tracker)
	if err != nil {
		tracker.Fail(errs.Describe(err))
		return nil, err
	}
	logger.Info("generation finished",
		zap.String("table", schema.TableName),
		zap.Int("records", len(records)),
		zap.Int("chunks", len(plan)),
	)

	outcome := sink.Outcome{}
	if r.Persister != nil {
		tracker.Note("Saving generated data")
		outcome = r.Persister.Persist(ctx, sink.Request{
			Schema:  &schema,
			Records: records,
			Formats: job.OutputFormat.Formats(),
			Storage: job.Storage,
		})
	}

	result := Aggregate(Summary{
		Schema:    &schema,
		Records:   len(records),
		Sample:    sample,
		Outcome:   outcome,
		ChunkSize: chunkSize,
		Chunks:    len(plan),
		Workers:   workers,
		Seed:      job.Seed,
		Elapsed:   time.Since(started),
	})
	tracker.Succeed(fmt.Sprintf("Generated %d records", len(records)))
	return result, nil
}
