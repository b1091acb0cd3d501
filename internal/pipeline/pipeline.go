package pipeline

import (
	"context"
	"encoding/json"

	"github.com/inkwell-ai/inkwell/internal/domain"
)

// JobState is the explicit terminal/progress field reported by the backend.
type JobState string

// Job states reported by the status collaborator. Backends spell terminal
// failure both "error" and "failed" depending on the stage that died.
const (
	JobStateSubmitted  JobState = "submitted"
	JobStateInProgress JobState = "in_progress"
	JobStateCompleted  JobState = "completed"
	JobStateError      JobState = "error"
	JobStateFailed     JobState = "failed"
)

// StartRequest carries the work item input parameters to the start-job
// collaborator.
type StartRequest struct {
	WorkItemID string                 `json:"work_item_id"`
	Input      domain.GenerationInput `json:"input"`
}

// StartResponse is the backend's answer to a start-job request.
type StartResponse struct {
	JobID         string   `json:"job_id"`
	InitialStatus JobState `json:"initial_status"`
}

// StatusResponse is one poll result for a running job. Only Status is
// authoritative for terminality: ProgressPercent and ProgressMessage are
// advisory and may claim completion well before the result is attached.
type StatusResponse struct {
	Status          JobState        `json:"status"`
	ProgressPercent int             `json:"progress_percent"`
	ProgressMessage string          `json:"progress_message,omitempty"`
	Stage           string          `json:"stage,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// Client is the interface to the external generation pipeline.
type Client interface {
	// StartJob submits a work item's input to the backend and returns the
	// issued job id. A failure here surfaces immediately; no polling is
	// attempted.
	StartJob(ctx context.Context, req StartRequest) (StartResponse, error)

	// JobStatus fetches the current status of a previously started job.
	JobStatus(ctx context.Context, jobID string) (StatusResponse, error)
}
