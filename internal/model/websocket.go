package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage is the generic message envelope
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage reports job progress to subscribers
type WSProgressMessage struct {
	Type     string    `json:"type"`
	JobID    string    `json:"jobId"`
	Progress float64   `json:"progress"`
	Status   JobStatus `json:"status"`
	Step     string    `json:"step,omitempty"`
}

// WSCompleteMessage carries the final artifact manifest
type WSCompleteMessage struct {
	Type   string   `json:"type"`
	JobID  string   `json:"jobId"`
	Output Manifest `json:"output"`
}

// WSErrorMessage reports a terminal failure
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
