package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stemsplit/api/internal/engine"
	"github.com/stemsplit/api/internal/model"
	"github.com/stemsplit/api/internal/storage"
)

type fakeSeparator struct {
	stems map[string]engine.Samples
	err   error
}

func (f *fakeSeparator) Separate(ctx context.Context, audioPath string) (*engine.SeparationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &engine.SeparationResult{SampleRate: 44100, Stems: f.stems}, nil
}

func (f *fakeSeparator) SampleRate() int { return 44100 }

type fakeEncoder struct {
	failOn string
}

func (f *fakeEncoder) Encode(samples engine.Samples, sampleRate int, path string) error {
	if f.failOn != "" && strings.Contains(path, f.failOn) {
		return fmt.Errorf("encode %s: disk full", path)
	}
	return os.WriteFile(path, []byte("wav"), 0o644)
}

func newTestProcessor(t *testing.T, sep engine.Separator, enc engine.Encoder) (*StemProcessor, *storage.LocalStorage) {
	t.Helper()
	st, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return NewStemProcessor(st, sep, enc, "wav"), st
}

func writeTestAudio(t *testing.T, st *storage.LocalStorage) string {
	t.Helper()
	path, err := st.SaveAudioFile("a1", "song.mp3", strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("failed to save audio: %v", err)
	}
	return path
}

func TestStemProcessorManifest(t *testing.T) {
	sep := &fakeSeparator{stems: map[string]engine.Samples{
		"vocals":        {{0.1, 0.2}},
		"accompaniment": {{0.3, 0.4}},
	}}
	proc, st := newTestProcessor(t, sep, &fakeEncoder{})
	audioPath := writeTestAudio(t, st)

	manifest, err := proc.Process(context.Background(), audioPath, "j1", nil)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if len(manifest) != 2 {
		t.Fatalf("expected 2 stems, got %d: %v", len(manifest), manifest)
	}
	for _, stem := range []string{"vocals", "accompaniment"} {
		rel, ok := manifest[stem]
		if !ok {
			t.Errorf("manifest missing stem %q", stem)
			continue
		}
		want := "jobs/j1/stems/song." + stem + ".wav"
		if rel != want {
			t.Errorf("stem %q path = %q, want %q", stem, rel, want)
		}
		if _, err := os.Stat(st.Abs(rel)); err != nil {
			t.Errorf("stem file missing on disk: %v", err)
		}
	}
}

func TestStemProcessorEncoderFailureLeavesNoStems(t *testing.T) {
	sep := &fakeSeparator{stems: map[string]engine.Samples{
		"vocals": {{0.1}},
		"drums":  {{0.2}},
	}}
	proc, st := newTestProcessor(t, sep, &fakeEncoder{failOn: "drums"})
	audioPath := writeTestAudio(t, st)

	if _, err := proc.Process(context.Background(), audioPath, "j1", nil); err == nil {
		t.Fatal("expected encoder failure to propagate")
	}

	// The canonical stems directory must not contain partial output.
	stems := filepath.Join(st.Root(), "jobs", "j1", "stems")
	if entries, err := os.ReadDir(stems); err == nil && len(entries) > 0 {
		t.Errorf("partial stems published: %d entries", len(entries))
	}
}

func TestStemProcessorSeparatorFailure(t *testing.T) {
	cause := errors.New("engine down")
	proc, st := newTestProcessor(t, &fakeSeparator{err: cause}, &fakeEncoder{})
	audioPath := writeTestAudio(t, st)

	_, err := proc.Process(context.Background(), audioPath, "j1", nil)
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped separator error, got %v", err)
	}
}

func TestStemProcessorEmptyResult(t *testing.T) {
	proc, st := newTestProcessor(t, &fakeSeparator{stems: map[string]engine.Samples{}}, &fakeEncoder{})
	audioPath := writeTestAudio(t, st)

	if _, err := proc.Process(context.Background(), audioPath, "j1", nil); err == nil {
		t.Error("expected error for empty separation result")
	}
}

func TestParseStemParams(t *testing.T) {
	if p := parseStemParams(nil); p.Model != defaultSeparationModel {
		t.Errorf("expected default model, got %q", p.Model)
	}
	if p := parseStemParams(model.JobParams{"model": "demucs_v3"}); p.Model != "demucs_v3" {
		t.Errorf("expected demucs_v3, got %q", p.Model)
	}
}

func TestRouterNotImplemented(t *testing.T) {
	r := NewRouter()
	r.Register(model.JobTypeMelodyExtraction, NewMelodyProcessor())
	r.Register(model.JobTypeChordAnalysis, NewChordProcessor())

	for _, jt := range []model.JobType{model.JobTypeMelodyExtraction, model.JobTypeChordAnalysis} {
		_, err := r.Process(context.Background(), jt, "in.mp3", "j1", nil)
		if !errors.Is(err, ErrNotImplemented) {
			t.Errorf("%s: expected ErrNotImplemented, got %v", jt, err)
		}
	}
}

func TestRouterUnknownJobType(t *testing.T) {
	r := NewRouter()
	_, err := r.Process(context.Background(), model.JobType("transcription"), "in.mp3", "j1", nil)
	if !errors.Is(err, ErrUnknownJobType) {
		t.Errorf("expected ErrUnknownJobType, got %v", err)
	}
}
