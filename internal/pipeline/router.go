// Package pipeline routes a job type to its processing routine and
// normalizes the produced artifacts into a storage-relative manifest.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsplit/api/internal/model"
)

// ErrNotImplemented marks a dispatch target whose processor does not exist
// yet, distinguishable from a processor that crashed.
var ErrNotImplemented = errors.New("not implemented")

// ErrUnknownJobType is returned for job types with no registered processor.
var ErrUnknownJobType = errors.New("unknown job type")

// Processor runs one kind of audio processing against an input file and
// returns a manifest of produced artifacts.
type Processor interface {
	Process(ctx context.Context, audioPath, jobID string, params model.JobParams) (model.Manifest, error)
}

// Router dispatches jobs to processors by job type. Adding a job type means
// registering an implementation, not branching on strings.
type Router struct {
	procs map[model.JobType]Processor
}

func NewRouter() *Router {
	return &Router{procs: make(map[model.JobType]Processor)}
}

// Register binds a processor to a job type, replacing any previous binding.
func (r *Router) Register(jobType model.JobType, p Processor) {
	r.procs[jobType] = p
}

// Process invokes the processor registered for the job type.
func (r *Router) Process(ctx context.Context, jobType model.JobType, audioPath, jobID string, params model.JobParams) (model.Manifest, error) {
	p, ok := r.procs[jobType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}
	return p.Process(ctx, audioPath, jobID, params)
}
