package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return s
}

func TestLayoutPaths(t *testing.T) {
	s := newTestStorage(t)

	audioDir, err := s.AudioDir("a1")
	if err != nil {
		t.Fatalf("audio dir: %v", err)
	}
	if audioDir != filepath.Join(s.Root(), "audio", "a1") {
		t.Errorf("unexpected audio dir %s", audioDir)
	}

	stems, err := s.StemsDir("j1")
	if err != nil {
		t.Fatalf("stems dir: %v", err)
	}
	if stems != filepath.Join(s.Root(), "jobs", "j1", "stems") {
		t.Errorf("unexpected stems dir %s", stems)
	}

	input, err := s.JobInputDir("j1")
	if err != nil {
		t.Fatalf("input dir: %v", err)
	}
	if input != filepath.Join(s.Root(), "jobs", "j1", "input") {
		t.Errorf("unexpected input dir %s", input)
	}

	// Directories are created on access
	for _, dir := range []string{audioDir, stems, input} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
}

func TestEnsureDirIdempotent(t *testing.T) {
	s := newTestStorage(t)

	dir, err := s.AudioDir("a1")
	if err != nil {
		t.Fatalf("audio dir: %v", err)
	}
	marker := filepath.Join(dir, "keep.txt")
	if err := os.WriteFile(marker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}

	if _, err := s.AudioDir("a1"); err != nil {
		t.Fatalf("second access: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("existing content removed: %v", err)
	}
}

func TestStemsPathDoesNotCreate(t *testing.T) {
	s := newTestStorage(t)

	path := s.StemsPath("j1")
	if path != filepath.Join(s.Root(), "jobs", "j1", "stems") {
		t.Errorf("unexpected stems path %s", path)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("stems path must not be created on access: %v", err)
	}
}

func TestSaveAudioFile(t *testing.T) {
	s := newTestStorage(t)

	path, err := s.SaveAudioFile("a1", "song.mp3", strings.NewReader("fake mp3 bytes"))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if path != filepath.Join(s.Root(), "audio", "a1", "song.mp3") {
		t.Errorf("unexpected path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "fake mp3 bytes" {
		t.Errorf("unexpected content %q", data)
	}

	// No temporary files are left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the saved file, found %d entries", len(entries))
	}
}

func TestRelPathAbsRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	path, err := s.AudioFilePath("a1", "song.mp3")
	if err != nil {
		t.Fatalf("audio file path: %v", err)
	}

	rel, err := s.RelPath(path)
	if err != nil {
		t.Fatalf("rel path: %v", err)
	}
	if rel != "audio/a1/song.mp3" {
		t.Errorf("unexpected rel path %q", rel)
	}
	if s.Abs(rel) != path {
		t.Errorf("abs(rel) != path: %s vs %s", s.Abs(rel), path)
	}
}
