package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/stemsplit/api/internal/model"
	"github.com/stemsplit/api/internal/store"
	"github.com/stemsplit/api/internal/storage"
)

// ErrUnsupportedFile is returned for uploads without a recognized audio
// extension.
var ErrUnsupportedFile = errors.New("unsupported file type")

// AudioService handles audio uploads and path resolution
type AudioService struct {
	store   *store.Store
	storage *storage.LocalStorage
}

func NewAudioService(st *store.Store, ls *storage.LocalStorage) *AudioService {
	return &AudioService{store: st, storage: ls}
}

// Upload saves an uploaded audio file under the storage root and registers
// it. The returned Audio can be referenced by any number of jobs.
func (s *AudioService) Upload(ctx context.Context, filename string, file io.Reader) (*model.Audio, error) {
	sanitized := storage.SanitizeFilename(filename)
	if sanitized != filename {
		log.Printf("Filename sanitized: %q -> %q", filename, sanitized)
	}
	if !storage.IsAudioFile(sanitized) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, sanitized)
	}

	audioID := uuid.New().String()

	savedPath, err := s.storage.SaveAudioFile(audioID, sanitized, file)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	relPath, err := s.storage.RelPath(savedPath)
	if err != nil {
		return nil, err
	}

	audio, err := s.store.CreateAudio(ctx, audioID, sanitized, relPath)
	if err != nil {
		return nil, fmt.Errorf("failed to save audio record: %w", err)
	}

	log.Printf("Audio %s uploaded as %s", audioID, relPath)
	return audio, nil
}

// Get returns the audio record for an id.
func (s *AudioService) Get(ctx context.Context, audioID string) (*model.Audio, error) {
	return s.store.GetAudio(ctx, audioID)
}

// ResolvePath returns the absolute on-disk path for an audio id. A
// registered id whose file is gone from disk is reported distinctly from an
// unknown id.
func (s *AudioService) ResolvePath(ctx context.Context, audioID string) (string, error) {
	rel, err := s.store.ResolveAudioPath(ctx, audioID)
	if err != nil {
		return "", err
	}
	path := s.storage.Abs(rel)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("audio %s file missing on disk: %w", audioID, err)
	}
	return path, nil
}
