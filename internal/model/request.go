package model

// CreateJobRequest is the body of POST /api/jobs.
type CreateJobRequest struct {
	Type   string            `json:"type" validate:"required,oneof=stem_separation melody_extraction chord_analysis"`
	Input  CreateJobInput    `json:"input" validate:"required"`
	Params map[string]string `json:"params"`
}

type CreateJobInput struct {
	AudioID string `json:"audioId" validate:"required,uuid4"`
}

// AudioResponse is returned after a successful upload.
type AudioResponse struct {
	AudioID  string `json:"audioId"`
	Filename string `json:"filename"`
}
