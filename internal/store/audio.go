package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stemsplit/api/internal/model"
)

// CreateAudio inserts a new audio row. The file path is stored relative to
// the storage root and never changes after creation.
func (s *Store) CreateAudio(ctx context.Context, id, filename, filePath string) (*model.Audio, error) {
	now := timestamp(time.Now())
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO audio (id, filename, file_path, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, filename, filePath, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert audio: %w", err)
	}
	return s.GetAudio(ctx, id)
}

// GetAudio fetches an audio row by id. Returns ErrNotFound when absent.
func (s *Store) GetAudio(ctx context.Context, id string) (*model.Audio, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, filename, file_path, created_at, updated_at FROM audio WHERE id = ?`,
		id,
	)

	var (
		audio     model.Audio
		createdAt string
		updatedAt string
	)
	err := row.Scan(&audio.ID, &audio.Filename, &audio.FilePath, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audio: %w", err)
	}

	if audio.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if audio.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &audio, nil
}

// ResolveAudioPath returns the stored storage-relative path for an audio id.
// Callers still have to check that the file exists on disk.
func (s *Store) ResolveAudioPath(ctx context.Context, id string) (string, error) {
	audio, err := s.GetAudio(ctx, id)
	if err != nil {
		return "", err
	}
	return audio.FilePath, nil
}
