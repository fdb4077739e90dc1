package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/datasynth/api/internal/errs"
	"github.com/datasynth/api/internal/model"
	"github.com/datasynth/api/internal/pipeline"
	"github.com/datasynth/api/internal/service"
	"github.com/datasynth/api/pkg/response"
)

// JobRecorder persists job state transitions
type JobRecorder interface {
	Job(ctx context.Context, jobID string) (*model.Job, error)
	UpdateProgress(ctx context.Context, jobID string, p model.Progress) error
	CompleteJob(ctx context.Context, jobID string, result *model.GenerationResult) error
	FailJob(ctx context.Context, jobID, errMsg string, kind errs.Kind) error
}

// Broadcaster pushes job events to live subscribers
type Broadcaster interface {
	BroadcastProgress(jobID string, p model.Progress)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID string, code, message string)
}

// JobRunner executes one generation job
type JobRunner interface {
	Run(ctx context.Context, job pipeline.Job, tracker *pipeline.Tracker) (*model.GenerationResult, error)
}

// GenerationWorker processes generate:data tasks
type GenerationWorker struct {
	jobs   JobRecorder
	runner JobRunner
	hub    Broadcaster
	logger *zap.Logger
}

// NewGenerationWorker creates a new generation worker
func NewGenerationWorker(jobs JobRecorder, runner JobRunner, hub Broadcaster, logger *zap.Logger) *GenerationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationWorker{
		jobs:   jobs,
		runner: runner,
		hub:    hub,
		logger: logger.Named("worker"),
	}
}

// ProcessTask handles generation task processing
func (w *GenerationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var task service.GenerationTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	jobID := task.JobID
	log := w.logger.With(zap.String("job_id", jobID))

	var payload model.GenerationJobPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, "Invalid payload", errs.KindValidation)
		return fmt.Errorf("failed to unmarshal generation payload: %v: %w", err, asynq.SkipRetry)
	}

	job, err := w.jobs.Job(ctx, jobID)
	if err != nil {
		if errors.Is(err, errs.ErrJobNotFound) {
			log.Warn("job record expired, dropping task")
			return nil
		}
		return err
	}
	if job.Status.Terminal() {
		log.Info("job already finished, skipping", zap.String("status", string(job.Status)))
		return nil
	}

	log.Info("starting generation job",
		zap.String("table", payload.Schema.TableName),
		zap.Int("records", payload.RecordCount),
		zap.Uint64("seed", payload.Seed),
	)

	tracker := pipeline.NewTracker(payload.RecordCount, job.TotalChunks, func(p model.Progress) {
		if p.Status.Terminal() {
			return
		}
		if err := w.jobs.UpdateProgress(ctx, jobID, p); err != nil {
			log.Warn("failed to update progress", zap.Error(err))
		}
		w.hub.BroadcastProgress(jobID, p)
	})

	result, err := w.runner.Run(ctx, pipeline.Job{
		Schema:       payload.Schema,
		RecordCount:  payload.RecordCount,
		OutputFormat: payload.OutputFormat,
		Storage:      payload.StorageOption,
		Seed:         payload.Seed,
		IDPools:      payload.IDPools,
	}, tracker)
	if err != nil {
		w.failJob(ctx, jobID, errs.Describe(err), errs.KindOf(err))
		log.Error("generation job failed", zap.Error(err))
		return fmt.Errorf("generation job %s: %v: %w", jobID, err, asynq.SkipRetry)
	}

	if err := w.jobs.CompleteJob(ctx, jobID, result); err != nil {
		log.Error("failed to save result", zap.Error(err))
		return err
	}

	w.hub.BroadcastComplete(jobID, result)
	log.Info("generation job completed", zap.Int("records", result.RecordsGenerated))
	return nil
}

func (w *GenerationWorker) failJob(ctx context.Context, jobID, errMsg string, kind errs.Kind) {
	if err := w.jobs.FailJob(ctx, jobID, errMsg, kind); err != nil {
		w.logger.Error("failed to mark job as failed", zap.String("job_id", jobID), zap.Error(err))
	}
	w.hub.BroadcastError(jobID, response.CodeGenerationFailed, errMsg)
}
