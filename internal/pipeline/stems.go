package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/stemsplit/api/internal/engine"
	"github.com/stemsplit/api/internal/model"
	"github.com/stemsplit/api/internal/storage"
)

// StemParams are the processor-specific options for stem separation,
// parsed and validated at dispatch time.
type StemParams struct {
	Model string
}

const defaultSeparationModel = "demucs_v4"

func parseStemParams(params model.JobParams) StemParams {
	p := StemParams{Model: defaultSeparationModel}
	if m, ok := params["model"]; ok && m != "" {
		p.Model = m
	}
	return p
}

// StemProcessor separates an audio file into component tracks and writes
// one encoded file per stem under the job's stems directory.
type StemProcessor struct {
	storage   *storage.LocalStorage
	separator engine.Separator
	encoder   engine.Encoder
	format    string
}

func NewStemProcessor(st *storage.LocalStorage, sep engine.Separator, enc engine.Encoder, format string) *StemProcessor {
	return &StemProcessor{
		storage:   st,
		separator: sep,
		encoder:   enc,
		format:    format,
	}
}

// Process runs one separation over the full input file, writes every stem
// into a per-attempt temporary directory, and moves the completed set into
// {root}/jobs/{jobID}/stems in one rename. The returned manifest maps stem
// names to storage-relative paths.
func (p *StemProcessor) Process(ctx context.Context, audioPath, jobID string, params model.JobParams) (model.Manifest, error) {
	stemParams := parseStemParams(params)
	log.Printf("Separating audio for job %s (model %s)", jobID, stemParams.Model)

	result, err := p.separator.Separate(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to separate audio: %w", err)
	}
	if len(result.Stems) == 0 {
		return nil, fmt.Errorf("separation returned no stems")
	}

	jobDir, err := p.storage.JobDir(jobID)
	if err != nil {
		return nil, err
	}

	// Stems land in a temp directory first so a crash mid-write never
	// leaves a partial stem set at the canonical location.
	tmpDir := filepath.Join(jobDir, ".stems-"+uuid.New().String())
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create attempt directory: %w", err)
	}

	track := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))

	for stem, samples := range result.Stems {
		name := fmt.Sprintf("%s.%s.%s", track, stem, p.format)
		if err := p.encoder.Encode(samples, result.SampleRate, filepath.Join(tmpDir, name)); err != nil {
			return nil, fmt.Errorf("failed to save stem %q: %w", stem, err)
		}
	}

	stemsPath := p.storage.StemsPath(jobID)
	// An empty directory from a creation-on-access call would make the
	// rename fail; remove it. Remove refuses non-empty directories, so
	// existing artifacts are never deleted.
	_ = os.Remove(stemsPath)
	if err := os.Rename(tmpDir, stemsPath); err != nil {
		return nil, fmt.Errorf("publish stems: %w", err)
	}

	return p.buildManifest(stemsPath, track)
}

// buildManifest re-scans the output directory and maps each stem name to
// its path relative to the storage root.
func (p *StemProcessor) buildManifest(stemsPath, track string) (model.Manifest, error) {
	matches, err := filepath.Glob(filepath.Join(stemsPath, "*."+p.format))
	if err != nil {
		return nil, fmt.Errorf("scan stems directory: %w", err)
	}

	manifest := make(model.Manifest, len(matches))
	for _, file := range matches {
		base := strings.TrimSuffix(filepath.Base(file), "."+p.format)
		stemName := strings.TrimPrefix(base, track+".")

		rel, err := p.storage.RelPath(file)
		if err != nil {
			return nil, err
		}
		manifest[stemName] = rel
	}
	return manifest, nil
}
