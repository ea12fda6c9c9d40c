package model

import "time"

// Audio represents an uploaded source file. An audio can be referenced by
// any number of jobs without re-uploading; id -> file_path never changes.
type Audio struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"filePath"` // relative to the storage root
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
