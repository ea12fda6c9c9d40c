package model

import "time"

// JobType identifies the processing routine a job runs.
type JobType string

const (
	JobTypeStemSeparation   JobType = "stem_separation"
	JobTypeMelodyExtraction JobType = "melody_extraction"
	JobTypeChordAnalysis    JobType = "chord_analysis"
)

var ValidJobTypes = []JobType{
	JobTypeStemSeparation, JobTypeMelodyExtraction, JobTypeChordAnalysis,
}

func (t JobType) Valid() bool {
	for _, v := range ValidJobTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// JobInput references the source material of a job.
type JobInput struct {
	AudioID string `json:"audioId"`
}

// JobParams carries processor-specific options (e.g. model name). Each
// processor parses and validates its own params at dispatch time.
type JobParams map[string]string

// Manifest maps artifact names to paths relative to the storage root.
type Manifest map[string]string

// Job represents a background audio-processing job in the system
type Job struct {
	ID           string    `json:"id"`
	Type         JobType   `json:"type"`
	Status       JobStatus `json:"status"`
	Input        JobInput  `json:"input"`
	Params       JobParams `json:"params,omitempty"`
	Output       Manifest  `json:"output,omitempty"`
	Progress     float64   `json:"progress"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
