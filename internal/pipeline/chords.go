package pipeline

import (
	"context"
	"fmt"

	"github.com/stemsplit/api/internal/model"
)

// ChordProcessor is a defined dispatch target whose analysis routine does
// not exist yet.
type ChordProcessor struct{}

func NewChordProcessor() *ChordProcessor {
	return &ChordProcessor{}
}

func (p *ChordProcessor) Process(ctx context.Context, audioPath, jobID string, params model.JobParams) (model.Manifest, error) {
	return nil, fmt.Errorf("chord analysis: %w", ErrNotImplemented)
}
