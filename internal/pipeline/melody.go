package pipeline

import (
	"context"
	"fmt"

	"github.com/stemsplit/api/internal/model"
)

// MelodyProcessor is a defined dispatch target whose extraction routine
// does not exist yet.
type MelodyProcessor struct{}

func NewMelodyProcessor() *MelodyProcessor {
	return &MelodyProcessor{}
}

func (p *MelodyProcessor) Process(ctx context.Context, audioPath, jobID string, params model.JobParams) (model.Manifest, error) {
	return nil, fmt.Errorf("melody extraction: %w", ErrNotImplemented)
}
