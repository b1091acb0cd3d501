package domain

import (
	"time"
)

// WorkItemStatus represents the lifecycle state of a work item.
type WorkItemStatus string

// Possible work item status values
const (
	StatusIdle      WorkItemStatus = "idle"
	StatusQueued    WorkItemStatus = "queued"
	StatusRunning   WorkItemStatus = "running"
	StatusCompleted WorkItemStatus = "completed"
	StatusError     WorkItemStatus = "error"
)

// ErrorKind classifies a user-visible failure on a work item.
type ErrorKind string

// Possible error kinds carried by ErrorInfo.
const (
	ErrorKindPipeline ErrorKind = "pipeline_failure"
	ErrorKindTimeout  ErrorKind = "poll_timeout"
	ErrorKindStart    ErrorKind = "start_failure"
)

// ErrorInfo describes a terminal failure of a work item. Message is
// human-readable; CanResume tells the presentation layer whether a fresh
// submission of the same item is expected to make progress.
type ErrorInfo struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	CanResume bool      `json:"can_resume"`
}

// GenerationInput holds the parameters sent to the external pipeline when a
// job is started for this work item.
type GenerationInput struct {
	Topic    string            `json:"topic"`
	Keywords []string          `json:"keywords,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// WorkItem is one schedulable unit of input tracked through its lifecycle.
type WorkItem struct {
	ID            string          `json:"id"`
	Input         GenerationInput `json:"input"`
	Status        WorkItemStatus  `json:"status"`
	ProgressText  string          `json:"progress_text,omitempty"`
	Stage         string          `json:"stage,omitempty"`
	ResultPayload string          `json:"result_payload,omitempty"`
	ErrorInfo     *ErrorInfo      `json:"error_info,omitempty"`
	RetryCount    int             `json:"retry_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewWorkItem creates a new WorkItem in the idle state.
// Returns an error if validation fails.
func NewWorkItem(id string, input GenerationInput) (*WorkItem, error) {
	item := &WorkItem{
		ID:        id,
		Input:     input,
		Status:    StatusIdle,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the WorkItem has valid data.
// Returns an error if any field fails validation.
func (w *WorkItem) Validate() error {
	if w.ID == "" {
		return ErrEmptyWorkItemID
	}

	if w.Input.Topic == "" {
		return ErrEmptyTopic
	}

	if !IsValidStatus(w.Status) {
		return ErrInvalidStatus
	}

	return nil
}

// IsValidStatus checks if the given status is a known WorkItemStatus.
func IsValidStatus(status WorkItemStatus) bool {
	switch status {
	case StatusIdle, StatusQueued, StatusRunning, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is a terminal state.
func (s WorkItemStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// IsResumable reports whether processing can restart from this status
// without loss.
func (s WorkItemStatus) IsResumable() bool {
	return s == StatusIdle || s == StatusQueued
}

// CanTransition reports whether a work item may move from one status to
// another. Terminal states can only be left through an explicit
// reset-for-retry (terminal → queued); a completed item never silently
// becomes running again.
func CanTransition(from, to WorkItemStatus) bool {
	if from == to {
		return true
	}

	switch from {
	case StatusIdle:
		return to == StatusQueued || to == StatusRunning
	case StatusQueued:
		return to == StatusRunning || to == StatusIdle
	case StatusRunning:
		// Cancellation reverts a running item to a resumable state.
		return to == StatusCompleted || to == StatusError ||
			to == StatusQueued || to == StatusIdle
	case StatusCompleted, StatusError:
		// Reset-for-retry only.
		return to == StatusQueued
	default:
		return false
	}
}
