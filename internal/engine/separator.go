// Package engine defines the narrow interfaces through which the external
// audio inference engines are consumed.
package engine

import "context"

// Samples holds raw audio for one source, one slice of samples per channel.
type Samples [][]float32

// SeparationResult is the output of one separation run.
type SeparationResult struct {
	SampleRate int
	Stems      map[string]Samples
}

// Separator isolates the component tracks of an audio file. Separation is
// long-running and CPU/GPU bound; implementations must honor ctx.
type Separator interface {
	Separate(ctx context.Context, audioPath string) (*SeparationResult, error)
	SampleRate() int
}

// Encoder writes raw sample data to an audio file on disk.
type Encoder interface {
	Encode(samples Samples, sampleRate int, path string) error
}
