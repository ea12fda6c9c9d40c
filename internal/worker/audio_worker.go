package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stemsplit/api/internal/model"
	"github.com/stemsplit/api/internal/pipeline"
	"github.com/stemsplit/api/internal/store"
	"github.com/stemsplit/api/internal/storage"
	"github.com/stemsplit/api/internal/websocket"
	"github.com/stemsplit/api/pkg/response"
)

// TaskTypeAudioJob is the Asynq task type for audio processing jobs.
const TaskTypeAudioJob = "audio:process"

// AudioJobWorker executes audio processing jobs. The same per-job procedure
// backs both the push (Asynq) and poll execution models.
type AudioJobWorker struct {
	store     *store.Store
	storage   *storage.LocalStorage
	router    *pipeline.Router
	hub       *websocket.Hub
	softLimit time.Duration
}

// NewAudioJobWorker creates a new audio job worker
func NewAudioJobWorker(st *store.Store, ls *storage.LocalStorage, router *pipeline.Router, hub *websocket.Hub, softLimit time.Duration) *AudioJobWorker {
	return &AudioJobWorker{
		store:     st,
		storage:   ls,
		router:    router,
		hub:       hub,
		softLimit: softLimit,
	}
}

// ProcessTask handles an Asynq delivery. Terminal outcomes are recorded in
// the job store and acknowledged; only transient failures are returned so
// the queue re-delivers with backoff.
func (w *AudioJobWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	retried, retriedOK := asynq.GetRetryCount(ctx)
	maxRetry, maxOK := asynq.GetMaxRetry(ctx)
	final := retriedOK && maxOK && retried >= maxRetry
	return w.executeDelivery(ctx, taskPayload.JobID, final)
}

// executeDelivery runs one queue delivery. A failure on the final delivery
// is recorded as terminal: the queue will never redeliver the task, so a row
// left queued would be stranded with no worker ever picking it up again.
func (w *AudioJobWorker) executeDelivery(ctx context.Context, jobID string, final bool) error {
	err := w.Execute(ctx, jobID)
	if err == nil || !final {
		return err
	}
	w.failJob(ctx, jobID, fmt.Sprintf("retries exhausted: %v", err))
	return nil
}

// NewTask builds the Asynq task enqueued for a job at creation time.
func NewTask(jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(map[string]string{"jobId": jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAudioJob, data), nil
}

// Execute runs one job to a terminal state. It returns an error only when
// the failure is worth re-delivering (transient infrastructure trouble);
// validation and processing failures are written to the job store and nil
// is returned, since the store is the source of truth for job outcomes.
func (w *AudioJobWorker) Execute(ctx context.Context, jobID string) error {
	job, err := w.store.GetJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("Job %s not found, dropping delivery", jobID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status.Terminal() {
		// Redelivered after completion; re-running would duplicate writes.
		return nil
	}

	claimed, err := w.store.ClaimJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("claim job %s: %w", jobID, err)
	}
	if !claimed {
		log.Printf("Job %s already claimed by another worker", jobID)
		return nil
	}

	log.Printf("Starting job %s (%s)", jobID, job.Type)
	w.hub.BroadcastProgress(jobID, 0, model.JobStatusRunning, "Job claimed")

	audio, err := w.store.GetAudio(ctx, job.Input.AudioID)
	if errors.Is(err, store.ErrNotFound) {
		w.failJob(ctx, jobID, fmt.Sprintf("audio %s not found", job.Input.AudioID))
		return nil
	}
	if err != nil {
		return w.requeue(ctx, jobID, fmt.Errorf("resolve audio %s: %w", job.Input.AudioID, err))
	}

	audioPath := w.storage.Abs(audio.FilePath)
	if _, statErr := os.Stat(audioPath); statErr != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("audio %s file missing on disk: %s", job.Input.AudioID, audio.FilePath))
		return nil
	}

	w.updateProgress(ctx, jobID, 0.1, "Processing audio")

	procCtx := ctx
	if w.softLimit > 0 {
		var cancel context.CancelFunc
		procCtx, cancel = context.WithTimeout(ctx, w.softLimit)
		defer cancel()
	}

	manifest, err := w.router.Process(procCtx, job.Type, audioPath, jobID, job.Params)
	if err != nil {
		if IsTransient(err) {
			return w.requeue(ctx, jobID, err)
		}
		if errors.Is(err, pipeline.ErrNotImplemented) {
			w.failJob(ctx, jobID, fmt.Sprintf("not implemented: %v", err))
			return nil
		}
		w.failJob(ctx, jobID, err.Error())
		return nil
	}

	one := 1.0
	upd := store.JobUpdate{Status: model.JobStatusSucceeded, Progress: &one, Output: manifest}
	if _, err := w.store.UpdateJobStatus(ctx, jobID, upd); err != nil {
		// One more try before handing the whole job back to the substrate.
		if _, retryErr := w.store.UpdateJobStatus(ctx, jobID, upd); retryErr != nil {
			return fmt.Errorf("record job %s success: %w", jobID, retryErr)
		}
	}

	w.hub.BroadcastComplete(jobID, manifest)
	log.Printf("Job %s completed", jobID)
	return nil
}

// requeue returns a transiently failed job to queued status so the next
// delivery can claim it, then propagates the cause for the substrate's
// retry policy.
func (w *AudioJobWorker) requeue(ctx context.Context, jobID string, cause error) error {
	if err := w.store.RequeueJob(ctx, jobID); err != nil {
		log.Printf("Failed to requeue job %s: %v", jobID, err)
	}
	log.Printf("Job %s hit transient failure, left for retry: %v", jobID, cause)
	return cause
}

func (w *AudioJobWorker) updateProgress(ctx context.Context, jobID string, progress float64, step string) {
	upd := store.JobUpdate{Status: model.JobStatusRunning, Progress: &progress}
	if _, err := w.store.UpdateJobStatus(ctx, jobID, upd); err != nil {
		log.Printf("Failed to update progress for job %s: %v", jobID, err)
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusRunning, step)
}

func (w *AudioJobWorker) failJob(ctx context.Context, jobID, errMsg string) {
	upd := store.JobUpdate{Status: model.JobStatusFailed, ErrorMessage: &errMsg}
	if _, err := w.store.UpdateJobStatus(ctx, jobID, upd); err != nil {
		log.Printf("Failed to mark job %s as failed, retrying once: %v", jobID, err)
		if _, err := w.store.UpdateJobStatus(ctx, jobID, upd); err != nil {
			log.Printf("Failed to mark job %s as failed: %v", jobID, err)
		}
	}
	w.hub.BroadcastError(jobID, response.CodeJobFailed, errMsg)
	log.Printf("Job %s failed: %s", jobID, errMsg)
}
