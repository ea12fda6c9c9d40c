package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/stemsplit/api/internal/config"
	"github.com/stemsplit/api/internal/model"
	"github.com/stemsplit/api/internal/store"
	"github.com/stemsplit/api/internal/worker"
)

// ErrInvalidJobType is returned for job types outside the known enum.
var ErrInvalidJobType = errors.New("invalid job type")

// JobService handles job creation and retrieval
type JobService struct {
	store       *store.Store
	audio       *AudioService
	asynqClient *asynq.Client
	cfg         *config.WorkerConfig
}

func NewJobService(st *store.Store, audio *AudioService, asynqClient *asynq.Client, cfg *config.WorkerConfig) *JobService {
	return &JobService{
		store:       st,
		audio:       audio,
		asynqClient: asynqClient,
		cfg:         cfg,
	}
}

// Create validates the request, writes a queued job row and enqueues it.
// An unresolvable audio reference yields a job created directly in failed
// status that no worker will ever run; a broker failure leaves the job
// queued, where the poll worker can recover it.
func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	jobType := model.JobType(req.Type)
	if !jobType.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJobType, req.Type)
	}

	jobID := uuid.New().String()
	input := model.JobInput{AudioID: req.Input.AudioID}

	// Resolve the audio before the row exists: a queued row for a job that
	// cannot run could be claimed by a poll worker in the gap.
	if _, err := s.audio.ResolvePath(ctx, req.Input.AudioID); err != nil {
		msg := fmt.Sprintf("audio %s not found", req.Input.AudioID)
		failed, createErr := s.store.CreateFailedJob(ctx, jobID, jobType, input, req.Params, msg)
		if createErr != nil {
			return nil, fmt.Errorf("failed to record validation failure: %w", createErr)
		}
		log.Printf("Job %s failed validation: %s", jobID, msg)
		return failed, nil
	}

	job, err := s.store.CreateJob(ctx, jobID, jobType, input, req.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := worker.NewTask(jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	// Enqueue failure must not fail job creation; the row stays queued and
	// is recoverable by polling.
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("audio"),
		asynq.MaxRetry(s.cfg.MaxRetry),
		asynq.Timeout(time.Duration(s.cfg.HardTimeLimit)*time.Second),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		log.Printf("Failed to enqueue job %s, left queued: %v", jobID, err)
	} else {
		log.Printf("Job %s enqueued", jobID)
	}

	return job, nil
}

// Get returns the latest committed state of a job.
func (s *JobService) Get(ctx context.Context, jobID string) (*model.Job, error) {
	return s.store.GetJob(ctx, jobID)
}
