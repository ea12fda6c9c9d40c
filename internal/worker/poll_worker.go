package worker

import (
	"context"
	"log"
	"time"

	"github.com/stemsplit/api/internal/model"
	"github.com/stemsplit/api/internal/store"
)

// PollWorker is the pull-based execution model: it periodically lists
// queued jobs and processes them sequentially until its context is
// cancelled. It also recovers jobs whose enqueue failed at creation time.
type PollWorker struct {
	worker   *AudioJobWorker
	store    *store.Store
	interval time.Duration
}

func NewPollWorker(w *AudioJobWorker, st *store.Store, interval time.Duration) *PollWorker {
	return &PollWorker{worker: w, store: st, interval: interval}
}

// Run polls until ctx is cancelled. Transiently failed jobs are requeued by
// the worker and picked up again on a later scan.
func (p *PollWorker) Run(ctx context.Context) {
	log.Printf("Poll worker started, polling every %s", p.interval)

	for {
		jobs, err := p.store.ListJobsByStatus(ctx, model.JobStatusQueued)
		if err != nil {
			log.Printf("Poll worker failed to list queued jobs: %v", err)
		} else {
			for _, job := range jobs {
				if ctx.Err() != nil {
					return
				}
				if err := p.worker.Execute(ctx, job.ID); err != nil {
					log.Printf("Job %s will be retried on a later poll: %v", job.ID, err)
				}
			}
		}

		select {
		case <-ctx.Done():
			log.Printf("Poll worker stopped")
			return
		case <-time.After(p.interval):
		}
	}
}
