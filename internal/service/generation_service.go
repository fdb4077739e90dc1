package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/datasynth/api/internal/errs"
	"github.com/datasynth/api/internal/model"
	"github.com/datasynth/api/internal/pipeline"
)

const (
	TaskTypeGenerate = "generate:data"
	QueueGeneration  = "generation"
)

// Enqueuer is the part of asynq.Client the service needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// GenerationTask is the body of a generate:data task
type GenerationTask struct {
	JobID   string          `json:"jobId"`
	Payload json.RawMessage `json:"payload"`
}

// GenerationService handles generation job submission and bookkeeping
type GenerationService struct {
	jobs       JobStore
	queue      Enqueuer
	chunkSize  int
	maxRecords int
	now        func() time.Time
}

func NewGenerationService(jobs JobStore, queue Enqueuer, chunkSize, maxRecords int) *GenerationService {
	return &GenerationService{
		jobs:       jobs,
		queue:      queue,
		chunkSize:  chunkSize,
		maxRecords: maxRecords,
		now:        time.Now,
	}
}

// Submit validates the request, stores a PENDING job and queues it
func (s *GenerationService) Submit(ctx context.Context, req *model.GenerateRequest) (*model.GenerateResponse, error) {
	if err := req.Schema.Validate(); err != nil {
		return nil, err
	}
	if req.RecordCount <= 0 {
		return nil, &errs.ValidationError{Field: "record_count", Message: "record count must be positive"}
	}
	if s.maxRecords > 0 && req.RecordCount > s.maxRecords {
		return nil, &errs.ValidationError{
			Field:   "record_count",
			Message: fmt.Sprintf("record count %d exceeds the limit of %d", req.RecordCount, s.maxRecords),
		}
	}

	seed := rand.Uint64()
	if req.Seed != nil {
		seed = *req.Seed
	}

	payload := &model.GenerationJobPayload{
		Schema:        req.Schema,
		RecordCount:   req.RecordCount,
		OutputFormat:  req.OutputFormat,
		StorageOption: req.StorageOption,
		Seed:          seed,
		IDPools:       req.IDPools,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	jobID := uuid.New().String()
	now := s.now()
	job := &model.Job{
		ID:          jobID,
		Status:      model.JobStatusPending,
		Total:       req.RecordCount,
		TotalChunks: len(pipeline.PlanChunks(req.RecordCount, s.chunkSize)),
		Message:     "Queued",
		Payload:     payloadBytes,
		CreatedAt:   now,
	}

	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := NewGenerationTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.queue.EnqueueContext(ctx, task,
		asynq.Queue(QueueGeneration),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		_ = s.FailJob(ctx, jobID, "failed to enqueue job", "")
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.GenerateResponse{
		JobID:     jobID,
		Status:    model.JobStatusPending,
		Total:     req.RecordCount,
		CreatedAt: now,
	}, nil
}

// Status returns the externally visible state of a job
func (s *GenerationService) Status(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	resp := &model.JobStatusResponse{
		JobID:           job.ID,
		Status:          job.Status,
		Current:         job.Current,
		Total:           job.Total,
		CompletedChunks: job.CompletedChunks,
		TotalChunks:     job.TotalChunks,
		Message:         job.Message,
		Error:           job.Error,
	}

	if job.Status == model.JobStatusSuccess && len(job.Result) > 0 {
		var result model.GenerationResult
		if err := json.Unmarshal(job.Result, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		resp.Result = &result
	}

	return resp, nil
}

// Job returns the raw job record
func (s *GenerationService) Job(ctx context.Context, jobID string) (*model.Job, error) {
	return s.jobs.Get(ctx, jobID)
}

// UpdateProgress records a progress snapshot (called by worker)
func (s *GenerationService) UpdateProgress(ctx context.Context, jobID string, p model.Progress) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return nil
	}

	if job.Status == model.JobStatusPending {
		now := s.now()
		job.StartedAt = &now
	}
	job.Status = model.JobStatusProgress
	job.Current = p.Current
	job.Total = p.Total
	job.CompletedChunks = p.CompletedChunks
	job.TotalChunks = p.TotalChunks
	job.Message = p.Message

	return s.jobs.Save(ctx, job)
}

// CompleteJob marks job as succeeded (called by worker)
func (s *GenerationService) CompleteJob(ctx context.Context, jobID string, result *model.GenerationResult) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSuccess
	job.Current = result.RecordsGenerated
	job.CompletedChunks = job.TotalChunks
	job.Message = fmt.Sprintf("Generated %d records", result.RecordsGenerated)
	job.Result = resultBytes
	now := s.now()
	job.CompletedAt = &now

	return s.jobs.Save(ctx, job)
}

// FailJob marks job as failed (called by worker)
func (s *GenerationService) FailJob(ctx context.Context, jobID, errMsg string, kind errs.Kind) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusFailure
	job.Error = &errMsg
	job.ErrorKind = string(kind)
	job.Message = errMsg
	now := s.now()
	job.CompletedAt = &now

	return s.jobs.Save(ctx, job)
}

// NewGenerationTask wraps a job payload into an asynq task
func NewGenerationTask(jobID string, payload []byte) (*asynq.Task, error) {
	data, err := json.Marshal(GenerationTask{JobID: jobID, Payload: payload})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeGenerate, data), nil
}
