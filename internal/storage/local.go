// Package storage maps logical entities (audio uploads, jobs) to paths
// under a configured root directory. All path-returning methods create
// intermediate directories before returning and never delete content.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	audioDir = "audio"
	jobsDir  = "jobs"
	inputDir = "input"
	stemsDir = "stems"
)

// LocalStorage is the local-filesystem layout manager.
type LocalStorage struct {
	root string
}

// New creates a LocalStorage rooted at the given directory, creating it if
// needed. The root is resolved to an absolute path so stored relative paths
// stay stable regardless of working directory.
func New(root string) (*LocalStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{root: abs}, nil
}

// Root returns the absolute storage root.
func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) ensureDir(elem ...string) (string, error) {
	path := filepath.Join(append([]string{s.root}, elem...)...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", path, err)
	}
	return path, nil
}

// AudioDir returns {root}/audio/{audioID}, creating it on access.
func (s *LocalStorage) AudioDir(audioID string) (string, error) {
	return s.ensureDir(audioDir, audioID)
}

// AudioFilePath returns {root}/audio/{audioID}/{filename}.
func (s *LocalStorage) AudioFilePath(audioID, filename string) (string, error) {
	dir, err := s.AudioDir(audioID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

// JobDir returns {root}/jobs/{jobID}, creating it on access.
func (s *LocalStorage) JobDir(jobID string) (string, error) {
	return s.ensureDir(jobsDir, jobID)
}

// JobInputDir returns {root}/jobs/{jobID}/input, the legacy location for
// direct-upload job creation.
func (s *LocalStorage) JobInputDir(jobID string) (string, error) {
	return s.ensureDir(jobsDir, jobID, inputDir)
}

// StemsDir returns {root}/jobs/{jobID}/stems, creating it on access.
func (s *LocalStorage) StemsDir(jobID string) (string, error) {
	return s.ensureDir(jobsDir, jobID, stemsDir)
}

// StemsPath returns {root}/jobs/{jobID}/stems without creating it, for
// callers that publish the directory themselves via rename.
func (s *LocalStorage) StemsPath(jobID string) string {
	return filepath.Join(s.root, jobsDir, jobID, stemsDir)
}

// SaveAudioFile writes an uploaded audio file to the audio directory. The
// data is written to a temporary file in the same directory and renamed
// into place, so a concurrent scan never sees a partially written file.
func (s *LocalStorage) SaveAudioFile(audioID, filename string, r io.Reader) (string, error) {
	dir, err := s.AudioDir(audioID)
	if err != nil {
		return "", err
	}
	return saveFile(dir, filename, r)
}

func saveFile(dir, filename string, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close file: %w", err)
	}

	target := filepath.Join(dir, filename)
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename into place: %w", err)
	}
	return target, nil
}

// Abs converts a storage-relative path (as stored in the database) into an
// absolute filesystem path.
func (s *LocalStorage) Abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// RelPath expresses an absolute path relative to the storage root, using
// forward slashes. This is the externally reported artifact path form.
func (s *LocalStorage) RelPath(path string) (string, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", fmt.Errorf("relativize %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}
